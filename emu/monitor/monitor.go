/*
 * shiresim - Plain-TCP debug listener (§6.2's external control surface,
 * minus telnet's IAC option negotiation).
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on the teacher's telnet/listener.go: a net.Listener accept loop
 * feeding connections into a handler goroutine, with a shutdown channel and
 * a bounded wait for in-flight connections to drain on Stop. The IAC
 * negotiation state machine in telnet/telnet.go has no counterpart here —
 * every line in and out is plain text, since this is a debug shell for a
 * human or a script, not a multi-user terminal server.
 */
package monitor

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/etsoc/shiresim/command/command"
	"github.com/etsoc/shiresim/command/debugshell"
)

// Server accepts debug-shell connections on one TCP port, serializing
// access to tgt across however many clients attach.
type Server struct {
	wg       sync.WaitGroup
	listener net.Listener
	shutdown chan struct{}
	mu       sync.Mutex
	tgt      *command.Target
}

// Start opens a listener on addr (e.g. ":9000") and begins serving
// debug-shell connections against tgt in the background.
func Start(addr string, tgt *command.Target) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("monitor: failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		listener: listener,
		shutdown: make(chan struct{}),
		tgt:      tgt,
	}
	s.wg.Add(1)
	go s.acceptLoop()
	slog.Info("monitor: listening on " + listener.Addr().String())
	return s, nil
}

// Stop closes the listener and waits (up to one second) for in-flight
// connections to finish.
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
		slog.Warn("monitor: timed out waiting for connections to close")
	}
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
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	fmt.Fprintln(conn, "shiresim debug monitor")
	scanner := bufio.NewScanner(conn)
	for {
		fmt.Fprint(conn, "shiresim> ")
		if !scanner.Scan() {
			return
		}
		s.mu.Lock()
		quit, err := debugshell.ProcessCommand(scanner.Text(), s.tgt)
		s.mu.Unlock()
		if err != nil {
			fmt.Fprintln(conn, "error: "+err.Error())
		}
		if quit {
			return
		}
	}
}
