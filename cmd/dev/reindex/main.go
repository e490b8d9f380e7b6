// Command reindex rebuilds the Elasticsearch room-type index from Postgres.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"hotelsuite/internal/catalog"
	"hotelsuite/internal/search"
	"hotelsuite/pkg/config"
	"hotelsuite/pkg/db"
)

func main() {
	cfg := config.Load()
	if !cfg.Elasticsearch.Enabled() {
		fmt.Fprintln(os.Stderr, "ELASTICSEARCH_URL is not set")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	es, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "elasticsearch: %v\n", err)
		os.Exit(1)
	}
	n, err := es.Reindex(ctx, catalog.NewRepository(pool))
	if err != nil {
		fmt.Fprintf(os.Stderr, "reindex: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("indexed %d room types into %s\n", n, cfg.Elasticsearch.Index)
}
