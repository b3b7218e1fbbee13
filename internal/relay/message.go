// Package relay implements the blind relay: a server that pairs one sender
// and one receiver per code hash and thereafter forwards opaque encrypted
// frames between them, plus the client side of a relayed session.
package relay

import (
	"encoding/json"
	"fmt"

	"github.com/zapxfer/zap/internal/protocol"
)

// Control message types. The control plane is JSON text, distinct from the
// binary data-plane frames the relay forwards without inspecting.
const (
	MsgRegister = "register"
	MsgMatched  = "matched"
	MsgError    = "error"
	MsgPing     = "ping"
	MsgPong     = "pong"
)

// ControlMessage is the JSON structure exchanged on the relay control plane.
type ControlMessage struct {
	Type     string `json:"type"`
	Role     string `json:"role,omitempty"`      // register only
	CodeHash string `json:"code_hash,omitempty"` // register only
	Message  string `json:"message,omitempty"`   // error only
}

// Register builds the registration message for a role and code hash.
func Register(role protocol.Role, codeHash string) ControlMessage {
	return ControlMessage{Type: MsgRegister, Role: role.String(), CodeHash: codeHash}
}

// Errorf builds an error control message.
func Errorf(format string, args ...interface{}) ControlMessage {
	return ControlMessage{Type: MsgError, Message: fmt.Sprintf(format, args...)}
}

// Marshal encodes a control message to its JSON wire form.
func (m ControlMessage) Marshal() []byte {
	data, _ := json.Marshal(m)
	return data
}

// ParseControl decodes a JSON control message.
func ParseControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ControlMessage{}, fmt.Errorf("malformed control message: %w", err)
	}
	return m, nil
}

// parseRole maps the wire role string back to a protocol role.
func parseRole(s string) (protocol.Role, error) {
	switch s {
	case "sender":
		return protocol.RoleSender, nil
	case "receiver":
		return protocol.RoleReceiver, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}
