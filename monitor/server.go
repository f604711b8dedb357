package monitor

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rcornwell/rv32ima/emu/core"
)

// Server accepts plain TCP connections and drives one monitor Session per
// connection, letting the debug shell attach remotely without a local
// terminal. Grounded on telnet/listener.go's accept-loop shape, stripped of
// the teacher's telnet-protocol negotiation and multi-port device fan-out:
// rv32ima exposes one flat command set, not per-device sub-consoles.
type Server struct {
	listener net.Listener
	core     *core.Core
	wg       sync.WaitGroup
	shutdown chan struct{}
}

// Listen opens a TCP listener on addr (e.g. ":6170") and starts accepting
// monitor sessions against c.
func Listen(addr string, c *core.Core) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("monitor: listen on %s: %w", addr, err)
	}
	s := &Server{listener: l, core: c, shutdown: make(chan struct{})}
	s.wg.Add(1)
	go s.acceptLoop()
	slog.Info("monitor: listening", "addr", l.Addr().String())
	return s, nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				slog.Warn("monitor: accept failed", "err", err)
				continue
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			Session(conn, s.core)
		}()
	}
}

// Stop closes the listener and waits (bounded) for in-flight sessions to
// finish, matching telnet.Stop's shutdown shape.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("monitor: timed out waiting for sessions to close")
	}
}
