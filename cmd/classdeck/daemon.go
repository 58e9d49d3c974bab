package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/classdeck/classdeck/internal/auth"
	"github.com/classdeck/classdeck/internal/config"
	"github.com/classdeck/classdeck/internal/document"
	"github.com/classdeck/classdeck/internal/localdoc"
	"github.com/classdeck/classdeck/internal/remote"
	classsync "github.com/classdeck/classdeck/internal/sync"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon",
	Long: `Run the sync daemon in the foreground.

The daemon owns the in-memory planner document. It:
  - loads the document from the local SQLite cache at startup
  - watches the session file and subscribes to the sync server when
    signed in
  - watches the UI document file and treats each rewrite as an edit
  - persists edits locally after a 2 second quiet period, then mirrors
    them to the sync server

Stop with Ctrl+C; pending changes are flushed before exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		foreground, _ := cmd.Flags().GetBool("log-stderr")

		dir := configDir()

		var logOut io.Writer = &lumberjack.Logger{
			Filename:   filepath.Join(dir, config.LogFile()),
			MaxSize:    config.LogMaxSizeMB(),
			MaxBackups: config.LogMaxBackups(),
			Compress:   true,
		}
		if foreground {
			logOut = os.Stderr
		}

		logger := log.New(logOut, "[daemon] ", log.LstdFlags)

		c, err := openCache()
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		watcher, err := auth.WatchDir(dir, log.New(logOut, "[auth] ", log.LstdFlags))
		if err != nil {
			return fmt.Errorf("failed to watch session: %w", err)
		}
		defer watcher.Close()

		store := remote.NewWSStore(config.RemoteURL(), config.RemoteToken(),
			log.New(logOut, "[remote] ", log.LstdFlags))

		cfg := classsync.Config{
			CacheKey:         cacheKey,
			DebounceInterval: config.Debounce(),
			Logger:           log.New(logOut, "[sync] ", log.LstdFlags),
		}
		if config.JournalEnabled() {
			cfg.JournalPath = filepath.Join(dir, "journal.jsonl")
		}

		ctrl := classsync.New(c, store, watcher, cfg)

		docWatcher, err := localdoc.Watch(dir, func(doc *document.AppDocument) {
			ctrl.Update(func(d *document.AppDocument) { *d = *doc })
		}, log.New(logOut, "[localdoc] ", log.LstdFlags))
		if err != nil {
			return fmt.Errorf("failed to watch document file: %w", err)
		}
		defer docWatcher.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Printf("classdeck daemon starting (config dir %s)", dir)
		return ctrl.Run(ctx)
	},
}

func init() {
	daemonCmd.Flags().Bool("log-stderr", false, "Log to stderr instead of the rotating log file")
	rootCmd.AddCommand(daemonCmd)
}
