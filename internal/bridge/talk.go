package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// DefaultAddr is the display engine's command socket.
const DefaultAddr = "localhost:8891"

// ErrUnreachable marks failures to reach the display engine, so callers can
// distinguish "display not running" from protocol errors.
var ErrUnreachable = errors.New("display engine unreachable")

// Talk is the calling side of the command socket: one connection per call,
// one JSON request, one JSON reply.
type Talk struct {
	url    string
	dialer *websocket.Dialer
	clock  clockwork.Clock
}

// NewTalk constructs a caller for the given display address. The address may
// be host:port or a ws:// / http:// URL.
func NewTalk(addr string, clock clockwork.Clock) *Talk {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Talk{
		url: wsURL(addr),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
		clock: clock,
	}
}

// Call sends one command and waits for its reply. The request is stamped
// with the send time and the reply with the receive time (Unix seconds).
func (t *Talk) Call(ctx context.Context, msg Message) (Message, error) {
	msg.SentAt = UnixSeconds(t.clock.Now())

	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return Message{}, fmt.Errorf("%w: dial %s: %v", ErrUnreachable, t.url, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}

	if err := conn.WriteJSON(msg); err != nil {
		return Message{}, fmt.Errorf("send command %q: %w", msg.Cmd, err)
	}
	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		return Message{}, fmt.Errorf("read reply for %q: %w", msg.Cmd, err)
	}
	reply.ReceivedAt = UnixSeconds(t.clock.Now())
	return reply, nil
}

// Handler turns a command message into its reply.
type Handler func(Message) Message

// Server is the answering side of the command socket.
type Server struct {
	addr     string
	handler  Handler
	upgrader websocket.Upgrader
}

// NewServer constructs a command server bound to addr.
func NewServer(addr string, handler Handler) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		addr:    addr,
		handler: handler,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}
}

// HTTPHandler exposes the websocket endpoint for embedding in another mux
// or an httptest server.
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).Warn("upgrade command socket")
			return
		}
		defer conn.Close()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			logrus.WithField("cmd", msg.Cmd).Debug("command received")
			if err := conn.WriteJSON(s.handler(msg)); err != nil {
				logrus.WithError(err).Warn("write command reply")
				return
			}
		}
	})
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.HTTPHandler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logrus.WithField("addr", s.addr).Info("command socket listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// PortInUse reports whether something already answers on addr. The gateway
// refuses to launch a second display engine when its socket is taken.
func PortInUse(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// UnixSeconds converts a time to the float Unix-seconds representation used
// on the wire.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func wsURL(addr string) string {
	switch {
	case strings.HasPrefix(addr, "ws://"), strings.HasPrefix(addr, "wss://"):
		return addr
	case strings.HasPrefix(addr, "http://"):
		return "ws://" + strings.TrimPrefix(addr, "http://")
	case strings.HasPrefix(addr, "https://"):
		return "wss://" + strings.TrimPrefix(addr, "https://")
	default:
		return "ws://" + addr
	}
}

