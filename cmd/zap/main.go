// Zap — CLI entry point.
//
// Dead simple end-to-end-encrypted file transfers from the terminal. Two
// parties share a short word code; the sender either listens for a direct
// TCP connection or both sides meet at a blind relay that forwards
// encrypted frames without being able to read them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/zapxfer/zap/internal/app"
	"github.com/zapxfer/zap/internal/config"
	"github.com/zapxfer/zap/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		debugMode bool
		port      int
		relayAddr string
	)

	root := &cobra.Command{
		Use:          "zap",
		Short:        "Encrypted file transfers with a speakable code",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugMode {
				util.EnableDebug()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "enable debug logging")
	root.PersistentFlags().IntVarP(&port, "port", "p", config.DefaultPort, "direct transfer TCP port")
	root.PersistentFlags().StringVar(&relayAddr, "relay", "", "relay address (host:port); omit for a direct connection")

	var (
		sendCode  string
		sendWords int
	)
	sendCmd := &cobra.Command{
		Use:   "send <path>",
		Short: "Send a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Send(ctx, config.SendConfig{
				Path:  args[0],
				Code:  sendCode,
				Words: sendWords,
				Relay: relayAddr,
				Port:  port,
			})
		},
	}
	sendCmd.Flags().StringVarP(&sendCode, "code", "c", "", "custom transfer code instead of generating one")
	sendCmd.Flags().IntVarP(&sendWords, "words", "w", config.DefaultWordCount, "number of words in the generated code")

	var (
		recvOutput string
		recvHost   string
		recvResume bool
	)
	receiveCmd := &cobra.Command{
		Use:     "receive <code>",
		Aliases: []string{"recv"},
		Short:   "Receive a file or directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Receive(ctx, config.ReceiveConfig{
				Code:   args[0],
				Output: recvOutput,
				Host:   recvHost,
				Port:   port,
				Relay:  relayAddr,
				Resume: recvResume,
			})
		},
	}
	receiveCmd.Flags().StringVarP(&recvOutput, "output", "o", "", "output path (default: sender's filename)")
	receiveCmd.Flags().StringVar(&recvHost, "host", "", "sender host for a direct connection")
	receiveCmd.Flags().BoolVarP(&recvResume, "resume", "r", false, "resume a previous partial transfer")

	root.AddCommand(sendCmd, receiveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
