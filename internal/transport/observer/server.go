package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pigflow.ai/internal/observerproto"
	"pigflow.ai/internal/sim/playback"
)

// Engine is the read side of the playback engine the observer needs.
type Engine interface {
	State() playback.View
	FarmIDs() []string
	Snapshot() playback.Snapshot
	Subscribe(buf int) (<-chan playback.Update, func())
}

type Server struct {
	eng Engine
	log *log.Logger

	// AllowRemote disables the loopback-only check.
	AllowRemote bool

	upgrader websocket.Upgrader
}

func NewServer(eng Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[observer] ", log.LstdFlags)
	}
	return &Server{
		eng: eng,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) allowed(r *http.Request) bool {
	return s.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		v := s.eng.State()
		ids := s.eng.FarmIDs()
		if ids == nil {
			ids = []string{}
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			SessionID:       v.SessionID,
			Day:             v.Day,
			Days:            v.Days,
			Phase:           v.Phase,
			Slaughterhouse:  v.Slaughterhouse,
			FarmIDs:         ids,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		updates, unsubscribe := s.eng.Subscribe(4)
		defer unsubscribe()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		resub := make(chan observerproto.SubscribeMsg, 1)

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			cur := sub
			send := func(kind playback.UpdateKind) error {
				b, err := json.Marshal(s.stateFrame(kind, cur))
				if err != nil {
					return err
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				return conn.WriteMessage(websocket.TextMessage, b)
			}
			if err := send(""); err != nil {
				writeErr <- err
				return
			}
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case u, ok := <-updates:
					if !ok {
						writeErr <- nil
						return
					}
					if err := send(u.Kind); err != nil {
						writeErr <- err
						return
					}
				case next := <-resub:
					cur = next
					if err := send(""); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			next, ok := parseSubscribe(msg)
			if !ok {
				continue
			}
			select {
			case resub <- next:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) stateFrame(kind playback.UpdateKind, sub observerproto.SubscribeMsg) observerproto.StateMsg {
	snap := s.eng.Snapshot()
	v := snap.View
	m := observerproto.StateMsg{
		Type:            observerproto.TypeState,
		ProtocolVersion: observerproto.Version,
		Kind:            kind,
		Day:             v.Day,
		Days:            v.Days,
		Phase:           v.Phase,
		Running:         v.Running,
		Loading:         v.Loading,
		Digest:          v.Digest,
		Totals:          v.Totals,
		Routes:          snap.Routes,
	}
	if m.Routes == nil {
		m.Routes = []playback.Route{}
	}
	if sub.IncludeFarms {
		m.Farms = snap.Farms
	}
	logs := snap.Logs
	if len(logs) > sub.MaxLogs {
		logs = logs[:sub.MaxLogs]
	}
	m.Logs = logs
	return m
}

func parseSubscribe(b []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(b, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.MaxLogs <= 0 {
		sub.MaxLogs = 20
	}
	if sub.MaxLogs > 500 {
		sub.MaxLogs = 500
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
