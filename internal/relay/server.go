package relay

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zapxfer/zap/internal/code"
	"github.com/zapxfer/zap/internal/protocol"
	"github.com/zapxfer/zap/internal/util"
)

// outQueueSize is the capacity of each session's outbound delivery queue.
// The transfer protocol keeps a single message in flight, so the queue
// stays shallow; a full queue blocks the forwarding side instead of
// dropping or reordering frames.
const outQueueSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// outFrame is one queued websocket message, control or data.
type outFrame struct {
	msgType int
	data    []byte
}

// session is one accepted relay connection. After a match, peer points at
// the partner session; forwarding reads it lock-free.
type session struct {
	id   string
	conn *websocket.Conn

	out      chan outFrame
	done     chan struct{}
	pumpDone chan struct{}
	once     sync.Once

	role       protocol.Role
	codeHash   string
	registered bool

	peer atomic.Pointer[session]
}

// enqueue places a frame on the session's outbound queue. It returns false
// once the session is shutting down.
func (s *session) enqueue(msgType int, data []byte) bool {
	select {
	case s.out <- outFrame{msgType: msgType, data: data}:
		return true
	case <-s.done:
		return false
	}
}

func (s *session) shutdown() {
	s.once.Do(func() { close(s.done) })
}

// Server accepts websocket connections and brokers exactly one
// sender↔receiver pairing per code hash, then forwards opaque bytes
// without inspecting or persisting them.
type Server struct {
	matcher  *Matcher
	listener net.Listener
}

// NewServer creates a relay server around the given matcher.
func NewServer(matcher *Matcher) *Server {
	return &Server{matcher: matcher}
}

// Start begins listening on the given TCP port (0 picks a free one) and
// serves in the background. Returns the bound port.
func (s *Server) Start(port int) (int, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, fmt.Errorf("relay listen: %w", err)
	}
	s.listener = listener
	bound := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	go func() {
		_ = http.Serve(listener, mux)
	}()

	util.LogInfo("relay listening on port %d", bound)
	return bound, nil
}

// Close stops accepting new connections. Established sessions run until
// their sockets close.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sess := &session{
		id:       uuid.NewString(),
		conn:     conn,
		out:      make(chan outFrame, outQueueSize),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	util.LogDebug("[%s] connection from %s", sess.id[:8], r.RemoteAddr)

	go s.writePump(sess)
	s.readLoop(sess)

	// Pre-match disconnects free the table slot. A matched peer gets no
	// proactive notification — it discovers loss when its next receive
	// fails.
	if sess.registered && sess.peer.Load() == nil {
		s.matcher.unregister(sess.codeHash, sess)
	}
	sess.shutdown()
	// Let the pump flush queued frames (a refusal's error message in
	// particular) before the socket goes away.
	<-sess.pumpDone
	conn.Close()
	util.LogDebug("[%s] disconnected", sess.id[:8])
}

// writePump is the dedicated forwarding task draining the session's queue
// to the socket, decoupling "decided to forward" from "written to wire".
// On shutdown it flushes whatever is already queued (a final error message
// must reach the client before the close).
func (s *Server) writePump(sess *session) {
	defer close(sess.pumpDone)
	for {
		select {
		case f := <-sess.out:
			if err := sess.conn.WriteMessage(f.msgType, f.data); err != nil {
				sess.shutdown()
				return
			}
		case <-sess.done:
			for {
				select {
				case f := <-sess.out:
					if err := sess.conn.WriteMessage(f.msgType, f.data); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// readLoop processes inbound messages until the socket fails or the
// session is told to stop. Any read error tears down the whole session;
// there is no graceful half-close.
func (s *Server) readLoop(sess *session) {
	for {
		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			if !s.handleControl(sess, data) {
				return
			}
		case websocket.BinaryMessage:
			// Data plane: forward verbatim and in order to the matched
			// peer. Frames before a match have nowhere to go and are
			// dropped.
			if peer := sess.peer.Load(); peer != nil {
				if !peer.enqueue(websocket.BinaryMessage, data) {
					return
				}
			}
		}

		select {
		case <-sess.done:
			return
		default:
		}
	}
}

// handleControl processes one control-plane message. It returns false when
// the session must close (after any queued reply is flushed).
func (s *Server) handleControl(sess *session, data []byte) bool {
	msg, err := ParseControl(data)
	if err != nil {
		sess.enqueue(websocket.TextMessage, Errorf("malformed registration").Marshal())
		sess.shutdown()
		return false
	}

	switch msg.Type {
	case MsgPing:
		sess.enqueue(websocket.TextMessage, ControlMessage{Type: MsgPong}.Marshal())
		return true

	case MsgRegister:
		if sess.registered {
			// The pairing is fixed for the rest of both sessions; a second
			// Register is just ignored like any other control message.
			return true
		}
		return s.handleRegister(sess, msg)

	default:
		// Matched sessions may see stray control traffic; it has no effect.
		return true
	}
}

func (s *Server) handleRegister(sess *session, msg ControlMessage) bool {
	role, err := parseRole(msg.Role)
	if err != nil {
		sess.enqueue(websocket.TextMessage, Errorf("malformed registration: %v", err).Marshal())
		sess.shutdown()
		return false
	}
	if len(msg.CodeHash) != code.HashLen || !isHex(msg.CodeHash) {
		sess.enqueue(websocket.TextMessage, Errorf("malformed registration: bad code hash").Marshal())
		sess.shutdown()
		return false
	}

	sess.role = role
	sess.codeHash = msg.CodeHash

	peer, err := s.matcher.register(sess, role, msg.CodeHash)
	if err != nil {
		// Duplicate role: the new session is refused and closed, the
		// original waiting registration stays untouched.
		sess.enqueue(websocket.TextMessage, Errorf("%v", err).Marshal())
		sess.shutdown()
		return false
	}
	sess.registered = true

	if peer == nil {
		util.LogInfo("[%s] %s waiting on %s…", sess.id[:8], role, msg.CodeHash[:8])
		return true
	}

	util.LogInfo("[%s] matched with [%s] on %s…", sess.id[:8], peer.id[:8], msg.CodeHash[:8])
	matched := ControlMessage{Type: MsgMatched}.Marshal()
	sess.enqueue(websocket.TextMessage, matched)
	peer.enqueue(websocket.TextMessage, matched)
	return true
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
