package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hearthsim.ai/internal/protocol"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/world"
)

// Server streams world frames to observers and accepts their commands.
type Server struct {
	world *world.World
	log   *log.Logger

	// ReadOnly rejects every CMD. Commands from non-loopback peers are
	// always rejected.
	ReadOnly bool
	// CommandTimeout bounds how long a CMD waits for the world loop.
	CommandTimeout time.Duration

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world:          w,
		log:            logger,
		CommandTimeout: 5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// BootstrapHandler serves the WELCOME frame over plain HTTP.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.world.Welcome())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		loopback := isLoopbackRemote(r.RemoteAddr)

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, reason := decodeSubscribe(msg)
		if reason != "" {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := make(chan []byte, 8)
		replies := make(chan []byte, 16)

		join := func(sub protocol.SubscribeMsg) bool {
			return s.world.JoinObserver(world.ObserverJoinRequest{
				SessionID:    sid,
				Out:          out,
				FocusAgentID: sub.FocusAgentID,
				EveryTicks:   sub.EveryTicks,
			})
		}
		if !join(sub) {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		defer s.world.LeaveObserver(sid)
		s.logf("observer %s joined from %s focus=%q", sid, r.RemoteAddr, sub.FocusAgentID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b = <-replies:
				case b = <-out:
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					cancel()
					return
				}
			}
		}()

		reply := func(res protocol.CmdResultMsg) {
			b, err := json.Marshal(res)
			if err != nil {
				return
			}
			select {
			case replies <- b:
			case <-ctx.Done():
			}
		}

		// Reader loop: SUBSCRIBE updates and CMD.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeSubscribe:
				if sub, reason := decodeSubscribe(msg); reason == "" {
					// Re-joining replaces the session's focus and rate.
					_ = join(sub)
				}
			case protocol.TypeCmd:
				var cm protocol.CmdMsg
				if err := json.Unmarshal(msg, &cm); err != nil {
					go reply(cmdResult("", false, protocol.ErrProtoBadRequest, "bad CMD payload", s.world.CurrentTick()))
					continue
				}
				go s.handleCommand(ctx, sid, loopback, cm, reply)
			}
		}

		cancel()
		s.logf("observer %s left", sid)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, sid string, loopback bool, cm protocol.CmdMsg, reply func(protocol.CmdResultMsg)) {
	now := s.world.CurrentTick()
	if cm.ProtocolVersion != protocol.Version {
		reply(cmdResult(cm.ID, false, protocol.ErrProtoVersion, "unsupported protocol_version", now))
		return
	}
	if s.ReadOnly || !loopback {
		reply(cmdResult(cm.ID, false, protocol.ErrNoPermission, "commands are disabled for this session", now))
		return
	}
	cmd, err := toCommand(sid, cm)
	if err != nil {
		reply(cmdResult(cm.ID, false, protocol.ErrBadRequest, err.Error(), now))
		return
	}

	timeout := s.CommandTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case res := <-s.world.Submit(cmd):
		reply(cmdResult(cm.ID, res.OK, res.Code, res.Message, res.Tick))
	case <-ctx.Done():
		reply(cmdResult(cm.ID, false, protocol.ErrWorldBusy, "timed out waiting for the world", s.world.CurrentTick()))
	}
}

func toCommand(sid string, cm protocol.CmdMsg) (world.Command, error) {
	cmd := world.Command{
		ID:        cm.ID,
		Kind:      cm.Cmd,
		Actor:     sid,
		StationID: strings.TrimSpace(cm.StationID),
		AgentID:   strings.TrimSpace(cm.AgentID),
	}
	switch cm.Cmd {
	case protocol.CmdRemoveStation:
		if cmd.StationID == "" {
			return cmd, fmt.Errorf("station_id is required")
		}
	case protocol.CmdSetNeed:
		if cmd.AgentID == "" {
			return cmd, fmt.Errorf("agent_id is required")
		}
		n, err := model.ParseNeed(strings.TrimSpace(cm.Need))
		if err != nil {
			return cmd, err
		}
		if math.IsNaN(cm.Value) || math.IsInf(cm.Value, 0) || cm.Value < 0 {
			return cmd, fmt.Errorf("value must be a finite number >= 0")
		}
		cmd.Need = n.String()
		cmd.Value = cm.Value
	default:
		return cmd, fmt.Errorf("unknown cmd %q", cm.Cmd)
	}
	return cmd, nil
}

func cmdResult(id string, ok bool, code, msg string, tick uint64) protocol.CmdResultMsg {
	return protocol.CmdResultMsg{
		Type:            protocol.TypeCmdResult,
		ProtocolVersion: protocol.Version,
		ID:              id,
		OK:              ok,
		Code:            code,
		Message:         msg,
		Tick:            tick,
	}
}

func decodeSubscribe(msg []byte) (protocol.SubscribeMsg, string) {
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, "bad subscribe"
	}
	if sub.Type != protocol.TypeSubscribe {
		return sub, "expected SUBSCRIBE"
	}
	if sub.ProtocolVersion != protocol.Version {
		return sub, "bad protocol_version"
	}
	if sub.EveryTicks < 0 {
		sub.EveryTicks = 0
	}
	return sub, ""
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
