package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/maeven-tapa/eals/config"
	"github.com/maeven-tapa/eals/security"
)

// Prints a session token for scripting against the local adapter.
func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	id := flag.String("id", "admin-01-0001", "principal id")
	role := flag.String("role", "admin", "admin, hr or employee")
	flag.Parse()

	cfg, err := config.LoadFromEnvironment(context.Background(), *configPath)
	if err != nil {
		log.Fatalf("[ERROR] failed to load configuration: %v", err)
	}
	if cfg.Web.SigningSecret == "" {
		log.Fatal("[ERROR] web.signingSecret is not set")
	}

	tokens, err := security.NewTokenIssuer(cfg.Web.SigningSecret, cfg.Web.TokenTTL)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	token, err := tokens.Create(security.Identity{PrincipalID: *id, Role: *role}, time.Now())
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	fmt.Println(token)
}
