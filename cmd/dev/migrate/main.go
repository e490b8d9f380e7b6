package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hotelsuite/pkg/config"
	"hotelsuite/pkg/db"
)

func main() {
	status := flag.Bool("status", false, "print the applied migration version and exit")
	flag.Parse()

	cfg := config.Load()
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://migrations"
	}

	if *status {
		v, dirty, err := db.Version(cfg.MigrationsPath, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration version: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return
	}

	// Uses DIRECT_URL when set so migrations bypass a transaction pooler.
	if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}

	// We don't print DSNs here to avoid leaking secrets into logs.
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime db open failed: %v\n", err)
		os.Exit(1)
	}
	pool.Close()

	fmt.Println("migrations applied")
}
