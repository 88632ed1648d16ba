package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/conorfennell/recall/internal/advisor"
	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/web"
)

func main() {
	// 1. Parse flags and assemble configuration
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}
	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Open the database and seed the starter collection
	db := storage.MustOpen(cfg.DBPath)
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	if err := db.SeedIfEmpty(domain.SeedConcepts()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	// 3. Import concepts from markdown files when a directory is given
	if cfg.ImportDir != "" {
		res := importer.ImportDir(db, cfg.ImportDir, time.Now())
		slog.Info("import finished",
			"dir", cfg.ImportDir,
			"parsed", res.Parsed,
			"imported", res.Imported,
			"skipped", res.Skipped,
			"errors", len(res.Errors))
		for _, e := range res.Errors {
			slog.Warn("import error", "err", e)
		}
	}

	// 4. Wire the advisor and start serving
	adv := advisor.New(advisor.Config{
		BaseURL: cfg.Advisor.BaseURL,
		Model:   cfg.Advisor.Model,
	})

	srv := web.NewServer(db, adv, cfg)
	slog.Info("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
