// Package app contains the top-level orchestration for the send and
// receive roles.
package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/zapxfer/zap/internal/code"
	"github.com/zapxfer/zap/internal/config"
	"github.com/zapxfer/zap/internal/protocol"
	"github.com/zapxfer/zap/internal/relay"
	"github.com/zapxfer/zap/internal/session"
	"github.com/zapxfer/zap/internal/transfer"
	"github.com/zapxfer/zap/internal/transport"
	"github.com/zapxfer/zap/internal/util"
)

// Send orchestrates the full sender lifecycle:
//  1. Pick or generate the transfer code
//  2. Resolve the payload (directories are packed into a tar first)
//  3. Establish the transport (direct listen, or relay registration)
//  4. Handshake, then bind the channel to the code-derived secret
//  5. Stream metadata and chunks through the session state machine
func Send(ctx context.Context, cfg config.SendConfig) error {
	// ── 1. Transfer code ───────────────────────────────────────────────
	transferCode := cfg.Code
	if transferCode == "" {
		transferCode = code.Generate(cfg.Words)
	}
	util.PrintCode(transferCode)

	// ── 2. Payload ─────────────────────────────────────────────────────
	meta, payloadPath, cleanup, err := preparePayload(cfg.Path)
	if err != nil {
		return err
	}
	defer cleanup()
	util.LogInfo("sending %s (%s)", meta.Filename, util.FormatBytes(float64(meta.Size)))

	// ── 3. Transport ───────────────────────────────────────────────────
	tr, err := senderTransport(ctx, cfg, transferCode)
	if err != nil {
		return err
	}
	defer tr.Close()

	// ── 4. Handshake + key agreement ───────────────────────────────────
	sess := session.New(protocol.RoleSender, tr)
	if err := sess.Handshake(); err != nil {
		return err
	}
	if err := sess.Authenticate(transferCode); err != nil {
		return err
	}
	util.LogDebug("channel authenticated")

	// ── 5. Transfer ────────────────────────────────────────────────────
	src, err := transfer.NewChunker(payloadPath, transfer.ChunkSize)
	if err != nil {
		sess.Abort("cannot read payload")
		return err
	}
	defer src.Close()

	bar := util.NewProgressBar(meta.Filename)
	defer bar.Done()
	obs := func(transferred, total uint64) {
		bar.Sample(transferred, total, bar.Rate(transferred))
	}

	if err := session.SendFile(ctx, sess, meta, src, obs); err != nil {
		return err
	}
	bar.Done()
	util.LogSuccess("transfer complete")
	return nil
}

// preparePayload stats the path and, for directories, packs it into a
// temporary tar archive. The returned cleanup removes any temp file.
func preparePayload(path string) (protocol.Metadata, string, func(), error) {
	noop := func() {}
	info, err := os.Stat(path)
	if err != nil {
		return protocol.Metadata{}, "", noop, err
	}

	if !info.IsDir() {
		meta, err := transfer.FileMetadata(path)
		return meta, path, noop, err
	}

	util.LogInfo("packing directory %s", path)
	tarPath, err := transfer.PackDir(path)
	if err != nil {
		return protocol.Metadata{}, "", noop, err
	}
	meta, err := transfer.FileMetadata(tarPath)
	if err != nil {
		os.Remove(tarPath)
		return protocol.Metadata{}, "", noop, err
	}
	meta.Filename = filepath.Base(path)
	meta.IsDirectory = true
	return meta, tarPath, func() { os.Remove(tarPath) }, nil
}

// senderTransport either registers at the relay or listens for a direct
// connection from the receiver.
func senderTransport(ctx context.Context, cfg config.SendConfig, transferCode string) (transport.Transport, error) {
	if cfg.Relay != "" {
		return relay.Connect(ctx, cfg.Relay, transferCode, protocol.RoleSender)
	}
	port := cfg.Port
	if port == 0 {
		port = config.DefaultPort
	}
	util.LogInfo("waiting for receiver…")
	return transport.Listen(ctx, port)
}
