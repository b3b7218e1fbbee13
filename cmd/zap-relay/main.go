// Zap relay — server entry point.
//
// The relay is blind: it matches one sender and one receiver by the hash
// of their shared code, then forwards opaque encrypted frames between them
// without ever being able to decrypt anything.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/zapxfer/zap/internal/config"
	"github.com/zapxfer/zap/internal/relay"
	"github.com/zapxfer/zap/internal/util"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		port      int
		debugMode bool
	)

	root := &cobra.Command{
		Use:          "zap-relay",
		Short:        "Blind relay server for zap transfers",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debugMode {
				util.EnableDebug()
			}

			srv := relay.NewServer(relay.NewMatcher())
			bound, err := srv.Start(port)
			if err != nil {
				return err
			}
			defer srv.Close()

			util.LogInfo("zap relay v%s up on port %d — all data is end-to-end encrypted", version, bound)
			<-ctx.Done()
			util.LogInfo("shutting down")
			return nil
		},
	}
	root.Flags().IntVarP(&port, "port", "p", config.DefaultRelayPort, "websocket listen port")
	root.Flags().BoolVarP(&debugMode, "debug", "d", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
