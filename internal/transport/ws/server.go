package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxelsiege.dev/internal/protocol"
)

// Server accepts websocket clients that submit world commands and receive
// per-tick event batches. It never touches the world directly: commands go
// into the host loop's channels, batches arrive via Broadcast.
type Server struct {
	commands chan<- protocol.CommandMsg
	observer chan<- [3]int
	log      *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

func NewServer(commands chan<- protocol.CommandMsg, observer chan<- [3]int, logger *log.Logger) *Server {
	return &Server{
		commands: commands,
		observer: observer,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[chan []byte]struct{}{},
	}
}

// Broadcast sends an event batch to every connected client. Slow clients
// drop batches rather than stalling the tick loop.
func (s *Server) Broadcast(batch protocol.EventBatchMsg) {
	b, err := json.Marshal(batch)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for out := range s.clients {
		select {
		case out <- b:
		default:
		}
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.log.Printf("client connected: %s", conn.RemoteAddr())
		defer s.log.Printf("client disconnected: %s", conn.RemoteAddr())

		out := make(chan []byte, 256)
		s.mu.Lock()
		s.clients[out] = struct{}{}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.clients, out)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.sendError(out, protocol.ErrProtoBadRequest, "malformed message")
				continue
			}
			if base.ProtocolVersion != protocol.Version {
				s.sendError(out, protocol.ErrProtoBadRequest, "protocol version mismatch")
				continue
			}
			switch base.Type {
			case protocol.TypeCommand:
				var cmd protocol.CommandMsg
				if err := json.Unmarshal(msg, &cmd); err != nil {
					s.sendError(out, protocol.ErrBadRequest, "malformed command")
					continue
				}
				switch cmd.Op {
				case protocol.OpDamage, protocol.OpRepair, protocol.OpRegisterNode:
					s.commands <- cmd
				default:
					s.sendError(out, protocol.ErrBadRequest, "unknown op")
				}
			case protocol.TypeObserver:
				var obs protocol.ObserverMsg
				if err := json.Unmarshal(msg, &obs); err != nil {
					s.sendError(out, protocol.ErrBadRequest, "malformed observer hint")
					continue
				}
				s.observer <- obs.Pos
			}
		}
	}
}

func (s *Server) sendError(out chan []byte, code, msg string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         msg,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}
