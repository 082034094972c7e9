package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/maeven-tapa/eals/backup"
	"github.com/maeven-tapa/eals/config"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/infrastructure/filesystem"
	"github.com/maeven-tapa/eals/utils"
)

// Restores a snapshot while the service is stopped.
func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	name := flag.String("name", "", "snapshot file name to restore")
	before := flag.String("before", "", "restore the newest snapshot taken before this time")
	list := flag.Bool("list", false, "list snapshots and exit")
	offsite := flag.Bool("offsite", false, "pick the snapshot from the offsite bucket instead of the local backup directory")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadFromEnvironment(ctx, *configPath)
	if err != nil {
		log.Fatalf("[ERROR] failed to load configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	dm, err := core.Open(ctx, core.Options{Path: cfg.Database.Path, LogLevel: core.ParseLogLevel(cfg.Database.LogLevel)})
	if err != nil {
		log.Fatalf("[ERROR] failed to open database: %v", err)
	}
	defer dm.Close()

	opts := []backup.Option{backup.WithLocation(loc)}
	if *offsite {
		if cfg.Offsite.Bucket == "" {
			log.Fatal("[ERROR] -offsite needs offsite.bucket in the configuration")
		}
		mirror, err := filesystem.NewS3Mirror(ctx, cfg.Offsite.Bucket, cfg.Offsite.Prefix)
		if err != nil {
			log.Fatalf("[ERROR] failed to set up offsite mirror: %v", err)
		}
		opts = append(opts, backup.WithMirror(mirror))
	}

	s := backup.NewScheduler(dm, cfg.BackupsDir(), opts...)
	var snaps []backup.Snapshot
	if *offsite {
		snaps, err = s.ListOffsite(ctx)
	} else {
		snaps, err = s.List()
	}
	if err != nil {
		log.Fatalf("[ERROR] failed to list snapshots: %v", err)
	}

	if *list {
		names := utils.Map(snaps, func(snap backup.Snapshot) string {
			return fmt.Sprintf("%s  %s  %d bytes", snap.Name, snap.Taken.Format("2006-01-02 15:04:05"), snap.Size)
		})
		fmt.Println(strings.Join(names, "\n"))
		return
	}

	target := *name
	if target == "" && *before != "" {
		limit, err := utils.ParseISOTime(*before)
		if err != nil {
			log.Fatalf("[ERROR] %v", err)
		}
		older := utils.Filter(snaps, func(snap backup.Snapshot) bool {
			return snap.Taken.Before(*limit)
		})
		if len(older) == 0 {
			log.Fatalf("[ERROR] no snapshot before %s", *before)
		}
		target = older[0].Name
	}
	if target == "" {
		log.Fatal("[ERROR] one of -name, -before or -list is required")
	}

	if *offsite {
		if err := s.FetchOffsite(ctx, target); err != nil {
			log.Fatalf("[ERROR] failed to fetch %s: %v", target, err)
		}
	}

	if err := s.Restore(ctx, target, "restore-cli"); err != nil {
		log.Fatalf("[ERROR] restore failed: %v", err)
	}
	log.Printf("[INFO] restored %s into %s", target, dm.Path())
}
