package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/config"
	"github.com/maeven-tapa/eals/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnvironment(ctx, *configPath)
	if err != nil {
		log.Fatalf("[ERROR] failed to load configuration: %v", err)
	}

	restart := make(chan struct{}, 1)
	a, err := app.New(ctx, cfg, app.WithRelauncher(func() error {
		select {
		case restart <- struct{}{}:
		default:
		}
		return nil
	}))
	if err != nil {
		log.Fatalf("[ERROR] failed to start: %v", err)
	}

	w, err := a.Start(ctx)
	if err != nil {
		a.Close()
		log.Fatalf("[ERROR] failed to start: %v", err)
	}
	if w.FirstRun {
		log.Printf("[INFO] first run: admin %s created, open the welcome pages to see the password", w.AdminID)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	var relaunch atomic.Bool
	go func() {
		select {
		case <-restart:
			relaunch.Store(true)
			cancel()
		case <-serveCtx.Done():
		}
	}()

	if err := web.Serve(serveCtx, a); err != nil {
		log.Printf("[ERROR] web adapter stopped: %v", err)
	}
	cancel()

	if err := a.Close(); err != nil {
		log.Printf("[ERROR] failed to close store: %v", err)
	}

	if relaunch.Load() {
		log.Println("[INFO] restarting after restore")
		exe, err := os.Executable()
		if err != nil {
			log.Fatalf("[ERROR] failed to find executable: %v", err)
		}
		if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
			log.Fatalf("[ERROR] failed to restart: %v", err)
		}
	}
}
