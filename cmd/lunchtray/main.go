package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/lunchtray/internal/cache"
	"github.com/abelbrown/lunchtray/internal/catalog"
	"github.com/abelbrown/lunchtray/internal/config"
	"github.com/abelbrown/lunchtray/internal/coord"
	"github.com/abelbrown/lunchtray/internal/engine"
	"github.com/abelbrown/lunchtray/internal/fetch"
	"github.com/abelbrown/lunchtray/internal/logging"
	"github.com/abelbrown/lunchtray/internal/ui"
)

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	if err := logging.Init(); err != nil {
		log.Printf("Warning: logging disabled: %v", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cachePath := cfg.ResolvedCachePath()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// A broken cache never blocks startup; the engine just starts cold.
	store, err := cache.Open(cachePath)
	if err != nil {
		logging.Warn("cache unavailable, running without persistence", "err", err)
		store = nil
	} else {
		defer store.Close()
	}

	entries := catalog.Available(cfg.EnableScraped)
	codes := make([]string, len(entries))
	for i, entry := range entries {
		codes[i] = entry.Code
	}

	eng := engine.New(nil)
	fetcher := fetch.NewFetcher()
	coordinator := coord.New(eng, store, fetcher, entries, cfg.Language, cfg.RefreshMinutes, nil)

	// The refresh command closes over the program pointer, which is
	// only assigned below; commands never run before program.Run.
	var program *tea.Program
	refresh := func() tea.Cmd {
		return func() tea.Msg {
			coordinator.Refresh(ctx, program, true)
			return nil
		}
	}

	app := ui.NewApp(eng.Snapshot, refresh, codes, cfg.SelectedCode, cfg.Language, cfg.UI.ShowPrices, cfg.UI.ShowAllergens)
	program = tea.NewProgram(app, tea.WithAltScreen())

	coordinator.Start(ctx, program)

	// Run UI (blocks until quit)
	if _, err := program.Run(); err != nil {
		log.Printf("Error running program: %v", err)
	}

	// Graceful shutdown
	cancel()
	coordinator.Wait()
}
