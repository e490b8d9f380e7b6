// Command seed loads the demo property (Harbour View Hotel) into Postgres and optionally
// creates a console admin. Running it twice is harmless.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hotelsuite/internal/audit"
	"hotelsuite/internal/auth"
	"hotelsuite/internal/catalog"
	"hotelsuite/pkg/config"
	"hotelsuite/pkg/db"
)

func main() {
	var (
		adminEmail    = flag.String("admin-email", "", "console admin email (defaults to BOOTSTRAP_ADMIN_EMAIL)")
		adminPassword = flag.String("admin-password", "", "console admin password (defaults to BOOTSTRAP_ADMIN_PASSWORD)")
	)
	flag.Parse()

	cfg := config.Load()
	if *adminEmail == "" {
		*adminEmail = cfg.Auth.BootstrapAdminEmail
	}
	if *adminPassword == "" {
		*adminPassword = cfg.Auth.BootstrapAdminPassword
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrationsPath != "" {
		if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	data := catalog.DemoSeed()
	if err := catalog.Seed(ctx, catalog.NewRepository(pool), data); err != nil {
		fmt.Fprintf(os.Stderr, "seed catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded property %s: %d room types, %d rooms, %d rate plans\n",
		catalog.DemoPropertyID, len(data.RoomTypes), len(data.Rooms), len(data.RatePlans))

	if *adminEmail == "" || *adminPassword == "" {
		return
	}
	svc := &auth.Service{Users: auth.NewRepository(pool), Audit: audit.NewRepository(pool)}
	if err := svc.BootstrapAdmin(ctx, *adminEmail, *adminPassword); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("admin ready: %s\n", *adminEmail)
}
