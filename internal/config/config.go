// Package config holds the CLI configuration types and defaults.
package config

// Defaults for the process-level surface. Relay addresses may carry an
// explicit port to override DefaultRelayPort.
const (
	DefaultPort      = 9999 // direct transfer TCP port
	DefaultRelayPort = 9000 // relay server websocket port
	DefaultWordCount = 3    // words in a generated transfer code
)

// SendConfig stores all parameters for a send invocation.
type SendConfig struct {
	Path  string // file or directory to send
	Code  string // custom transfer code; empty → generate one
	Words int    // word count for a generated code
	Relay string // relay address; empty → listen for a direct connection
	Port  int    // direct-mode listen port
}

// ReceiveConfig stores all parameters for a receive invocation.
type ReceiveConfig struct {
	Code   string // transfer code from the sender
	Output string // output path; empty → sender's filename
	Host   string // direct-mode host to connect to
	Port   int    // direct-mode port
	Relay  string // relay address; empty → direct connection
	Resume bool   // resume a previous partial transfer
}
