package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/classdeck/classdeck/internal/config"
	"github.com/classdeck/classdeck/internal/remote"
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local document server for development",
	Long: `Run an in-memory document server speaking the classdeck sync protocol.

Documents are held in memory only and lost on exit. Useful for developing
against a local server or for trying multi-device sync on one machine:

  classdeck devserver --addr 127.0.0.1:8787
  CLASSDECK_REMOTE_URL=ws://127.0.0.1:8787 classdeck daemon`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = config.RemoteToken()
		}

		server := remote.NewDevServer(remote.DevServerConfig{
			Addr:   addr,
			Token:  token,
			Logger: log.New(os.Stderr, "[devserver] ", log.LstdFlags),
		})
		if err := server.Start(); err != nil {
			return err
		}

		fmt.Printf("Document server listening on %s\n", server.URL())
		fmt.Println("Press Ctrl+C to stop...")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		return server.Stop()
	},
}

func init() {
	devserverCmd.Flags().String("addr", "127.0.0.1:8787", "Address to listen on")
	devserverCmd.Flags().String("token", "", "Require this sync token from clients")
	rootCmd.AddCommand(devserverCmd)
}
