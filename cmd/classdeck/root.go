package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/classdeck/classdeck/internal/cache"
	"github.com/classdeck/classdeck/internal/config"
	"github.com/classdeck/classdeck/internal/document"
	classsync "github.com/classdeck/classdeck/internal/sync"
)

var rootCmd = &cobra.Command{
	Use:   "classdeck",
	Short: "Offline-first sync engine for the classdeck planner",
	Long: `classdeck keeps a teacher's planner data available offline and in sync
across devices.

All data lives in a local SQLite cache and, when signed in, mirrors to a
single per-user document on the sync server. The daemon reconciles the
two continuously; every other command works offline against the cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Initialize()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage classdeck configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefault()
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// configDir resolves the config directory or exits.
func configDir() string {
	dir, err := config.Dir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// openCache opens the local SQLite cache under the config directory.
func openCache() (*cache.Cache, error) {
	return cache.Open(filepath.Join(configDir(), config.CacheFile()))
}

// loadCached returns the cached document, or a fresh one when the cache
// is empty. Commands that edit offline work against this copy.
func loadCached(c *cache.Cache) (*document.AppDocument, error) {
	doc, ok, err := c.Load(cacheKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return document.New(), nil
	}
	return doc, nil
}

// cacheKey is the single cache entry used by every command and the daemon.
const cacheKey = "appdocument"

// journal returns the shared sync journal, or nil when disabled.
func journal() *classsync.Journal {
	if !config.JournalEnabled() {
		return nil
	}
	return classsync.NewJournal(filepath.Join(configDir(), "journal.jsonl"))
}
