package app

import (
	"context"
	"fmt"
	"os"

	"github.com/zapxfer/zap/internal/config"
	"github.com/zapxfer/zap/internal/crypto"
	"github.com/zapxfer/zap/internal/protocol"
	"github.com/zapxfer/zap/internal/relay"
	"github.com/zapxfer/zap/internal/session"
	"github.com/zapxfer/zap/internal/transfer"
	"github.com/zapxfer/zap/internal/transport"
	"github.com/zapxfer/zap/internal/util"
)

// Receive orchestrates the full receiver lifecycle:
//  1. Establish the transport (direct dial, or relay registration)
//  2. Handshake, then bind the channel to the code-derived secret
//  3. Receive metadata, decide the output path and resume point
//  4. Acknowledge and consume the chunk stream
//  5. Verify the checksum and unpack directories
func Receive(ctx context.Context, cfg config.ReceiveConfig) error {
	// ── 1. Transport ───────────────────────────────────────────────────
	tr, err := receiverTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer tr.Close()

	// ── 2. Handshake + key agreement ───────────────────────────────────
	sess := session.New(protocol.RoleReceiver, tr)
	if err := sess.Handshake(); err != nil {
		return err
	}
	if err := sess.Authenticate(cfg.Code); err != nil {
		return err
	}
	util.LogDebug("channel authenticated")

	// ── 3. Metadata ────────────────────────────────────────────────────
	meta, err := session.ReceiveMetadata(sess)
	if err != nil {
		return err
	}
	util.LogInfo("receiving %s (%s)", meta.Filename, util.FormatBytes(float64(meta.Size)))

	outputPath := cfg.Output
	if outputPath == "" {
		outputPath = meta.Filename
	}

	// Directories arrive as a tar archive written to a temp file and
	// unpacked after completion. The temp file is fresh per run, so a
	// directory transfer always restarts from chunk zero.
	writePath := outputPath
	var archivePath string
	if meta.IsDirectory {
		tmp, err := os.CreateTemp("", "zap-*.tar")
		if err != nil {
			return err
		}
		tmp.Close()
		archivePath = tmp.Name()
		writePath = archivePath
		defer os.Remove(archivePath)
		if cfg.Resume {
			util.LogWarning("resume is not supported for directory transfers; starting over")
		}
	}

	var fromChunk uint64
	if cfg.Resume && !meta.IsDirectory {
		fromChunk = transfer.ResumePoint(writePath, transfer.ChunkSize)
		if fromChunk > 0 {
			util.LogInfo("resuming from chunk %d", fromChunk)
		}
	}

	// ── 4. Transfer ────────────────────────────────────────────────────
	var sink *transfer.FileWriter
	if fromChunk > 0 {
		sink, err = transfer.ResumeFileWriter(writePath, fromChunk, transfer.ChunkSize)
	} else {
		sink, err = transfer.NewFileWriter(writePath)
	}
	if err != nil {
		// Tell the sender instead of leaving it blocked on the gate.
		sess.Abort("cannot open output file")
		return err
	}

	bar := util.NewProgressBar(meta.Filename)
	defer bar.Done()
	obs := func(transferred, total uint64) {
		bar.Sample(transferred, total, bar.Rate(transferred))
	}

	if err := session.ReceiveFile(ctx, sess, sink, fromChunk, obs); err != nil {
		return err
	}
	bar.Done()

	// ── 5. Verify + unpack ─────────────────────────────────────────────
	if meta.Checksum != "" {
		sum, err := crypto.ChecksumFile(writePath)
		if err != nil {
			return err
		}
		if sum != meta.Checksum {
			return fmt.Errorf("checksum mismatch: got %s, announced %s", sum, meta.Checksum)
		}
	}

	if meta.IsDirectory {
		util.LogInfo("unpacking into %s", outputPath)
		if err := transfer.ExtractArchive(archivePath, outputPath); err != nil {
			return err
		}
	}

	util.LogSuccess("saved to %s", outputPath)
	return nil
}

// receiverTransport either registers at the relay or dials the sender
// directly.
func receiverTransport(ctx context.Context, cfg config.ReceiveConfig) (transport.Transport, error) {
	if cfg.Relay != "" {
		return relay.Connect(ctx, cfg.Relay, cfg.Code, protocol.RoleReceiver)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("host required for a direct connection (or pass --relay)")
	}
	port := cfg.Port
	if port == 0 {
		port = config.DefaultPort
	}
	return transport.Dial(ctx, cfg.Host, port)
}
