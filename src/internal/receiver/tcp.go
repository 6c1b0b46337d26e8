// FILE: src/internal/receiver/tcp.go
package receiver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"kinlog/src/internal/auth"
	"kinlog/src/internal/config"
	"kinlog/src/internal/session"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
)

const (
	maxClientBufferSize = 10 * 1024 * 1024
	tcpIdleTimeout      = 10 * time.Minute
)

// TCPReceiver speaks the line protocol used by the tcp producer:
//
//	AUTH <token>                       -> AUTH_OK | AUTH_FAIL
//	PUT <stream> <key> <base64 data>   -> OK <shard> <sequence> | ERR <reason>
//
// Stream and key are path-escaped so they may contain spaces.
//
// Replies are written in request order.
type TCPReceiver struct {
	host        string
	port        int64
	maxLineSize int
	ledger      *Ledger
	verifier    *auth.Verifier
	handler     Handler
	sessions    *session.Manager
	server      *tcpServer
	logger      *log.Logger

	engine   *gnet.Engine
	engineMu sync.Mutex
	booted   chan struct{}
	wg       sync.WaitGroup

	// Statistics
	totalRecords   atomic.Uint64
	invalidRecords atomic.Uint64
	authFailures   atomic.Uint64
	authSuccesses  atomic.Uint64
	throttled      atomic.Uint64
	activeConns    atomic.Int64
	startTime      time.Time
}

// NewTCPReceiver builds a receiver; a zero port picks a free one on Start
func NewTCPReceiver(cfg *config.ReceiverConfig, ledger *Ledger, handler Handler, logger *log.Logger) (*TCPReceiver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("receiver config is nil")
	}
	if ledger == nil {
		ledger = NewLedger(cfg.ShardCount, cfg.ShardRecordsPerSecond)
	}

	t := &TCPReceiver{
		host:        cfg.Host,
		port:        cfg.TCPPort,
		maxLineSize: int(cfg.MaxBodySize),
		ledger:      ledger,
		handler:     handler,
		booted:      make(chan struct{}),
		startTime:   time.Now(),
		logger:      logger,
	}
	if t.maxLineSize <= 0 {
		t.maxLineSize = 1 << 20
	}
	// Base64 inflates payloads by a third
	t.maxLineSize = t.maxLineSize*4/3 + 1024

	if cfg.SigningKey != "" {
		v, err := auth.NewVerifier(cfg.SigningKey, "", "", logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create token verifier: %w", err)
		}
		t.verifier = v
	}

	t.server = &tcpServer{
		receiver:  t,
		clients:   make(map[gnet.Conn]*tcpClient),
		bySession: make(map[string]gnet.Conn),
	}
	t.sessions = session.NewManager(tcpIdleTimeout, t.server.closeIdle)
	return t, nil
}

func (t *TCPReceiver) Start() error {
	if t.port == 0 {
		port, err := freePort(t.host)
		if err != nil {
			return fmt.Errorf("failed to find free port: %w", err)
		}
		t.port = int64(port)
	}

	addr := fmt.Sprintf("tcp://%s", t.Addr())
	gnetLogger := compat.NewGnetAdapter(t.logger)

	errChan := make(chan error, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.logger.Info("msg", "TCP receiver starting",
			"component", "tcp_receiver",
			"address", t.Addr(),
			"auth_required", t.verifier != nil)

		err := gnet.Run(t.server, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithMulticore(true),
			gnet.WithReusePort(true),
		)
		if err != nil {
			t.logger.Error("msg", "TCP receiver failed",
				"component", "tcp_receiver",
				"address", t.Addr(),
				"error", err)
		}
		errChan <- err
	}()

	select {
	case err := <-errChan:
		t.wg.Wait()
		if err == nil {
			err = errors.New("tcp receiver exited during startup")
		}
		return err
	case <-t.booted:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("tcp receiver did not start on %s", t.Addr())
	}
}

// Addr is the host:port the receiver binds
func (t *TCPReceiver) Addr() string {
	return net.JoinHostPort(t.host, strconv.FormatInt(t.port, 10))
}

func (t *TCPReceiver) Stop() {
	t.engineMu.Lock()
	engine := t.engine
	t.engineMu.Unlock()

	if engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := engine.Stop(ctx); err != nil {
			t.logger.Warn("msg", "Error stopping TCP receiver engine",
				"component", "tcp_receiver",
				"error", err)
		}
	}
	t.sessions.Stop()
	t.wg.Wait()

	t.logger.Info("msg", "TCP receiver stopped",
		"component", "tcp_receiver",
		"total_records", t.totalRecords.Load())
}

func (t *TCPReceiver) GetStats() map[string]any {
	stats := map[string]any{
		"type":               "tcp",
		"address":            t.Addr(),
		"total_records":      t.totalRecords.Load(),
		"invalid_records":    t.invalidRecords.Load(),
		"auth_failures":      t.authFailures.Load(),
		"auth_successes":     t.authSuccesses.Load(),
		"throttled":          t.throttled.Load(),
		"active_connections": t.activeConns.Load(),
		"start_time":         t.startTime,
		"sessions":           t.sessions.GetStats(),
		"ledger":             t.ledger.GetStats(),
	}
	if t.verifier != nil {
		stats["auth"] = t.verifier.GetStats()
	}
	return stats
}

type tcpClient struct {
	buffer        []byte
	authenticated bool
	session       *session.Session
}

type tcpServer struct {
	gnet.BuiltinEventEngine
	receiver  *TCPReceiver
	clients   map[gnet.Conn]*tcpClient
	bySession map[string]gnet.Conn
	mu        sync.RWMutex
}

func (s *tcpServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.receiver.engineMu.Lock()
	s.receiver.engine = &eng
	s.receiver.engineMu.Unlock()
	close(s.receiver.booted)

	s.receiver.logger.Debug("msg", "TCP receiver booted",
		"component", "tcp_receiver",
		"address", s.receiver.Addr())
	return gnet.None
}

func (s *tcpServer) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	remoteAddr := c.RemoteAddr().String()
	client := &tcpClient{
		authenticated: s.receiver.verifier == nil,
		session:       s.receiver.sessions.Create(remoteAddr, "tcp"),
	}

	s.mu.Lock()
	s.clients[c] = client
	s.bySession[client.session.ID] = c
	s.mu.Unlock()

	count := s.receiver.activeConns.Add(1)
	s.receiver.logger.Debug("msg", "TCP connection opened",
		"component", "tcp_receiver",
		"remote_addr", remoteAddr,
		"session_id", client.session.ID,
		"active_connections", count)
	return nil, gnet.None
}

func (s *tcpServer) OnClose(c gnet.Conn, err error) gnet.Action {
	s.mu.Lock()
	client, ok := s.clients[c]
	delete(s.clients, c)
	if ok {
		delete(s.bySession, client.session.ID)
	}
	s.mu.Unlock()

	if ok {
		s.receiver.sessions.Remove(client.session.ID)
	}

	count := s.receiver.activeConns.Add(-1)
	s.receiver.logger.Debug("msg", "TCP connection closed",
		"component", "tcp_receiver",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", count,
		"error", err)
	return gnet.None
}

// closeIdle runs from the session manager for producers gone quiet
func (s *tcpServer) closeIdle(sess *session.Session) {
	s.mu.RLock()
	c, ok := s.bySession[sess.ID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	s.receiver.logger.Info("msg", "Closing idle TCP connection",
		"component", "tcp_receiver",
		"remote_addr", sess.RemoteAddr,
		"idle_since", sess.LastActivity())
	c.CloseWithCallback(nil)
}

func (s *tcpServer) OnTraffic(c gnet.Conn) gnet.Action {
	s.mu.RLock()
	client, exists := s.clients[c]
	s.mu.RUnlock()
	if !exists {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		s.receiver.logger.Error("msg", "Error reading from connection",
			"component", "tcp_receiver",
			"error", err)
		return gnet.Close
	}

	if len(client.buffer)+len(data) > maxClientBufferSize {
		s.receiver.logger.Warn("msg", "Client buffer limit exceeded, closing connection",
			"component", "tcp_receiver",
			"remote_addr", c.RemoteAddr().String(),
			"buffer_size", len(client.buffer),
			"incoming_size", len(data))
		s.receiver.invalidRecords.Add(1)
		return gnet.Close
	}
	client.buffer = append(client.buffer, data...)

	var out bytes.Buffer
	action := gnet.None
	accepted := 0

	for action == gnet.None {
		idx := bytes.IndexByte(client.buffer, '\n')
		if idx < 0 {
			if len(client.buffer) > s.receiver.maxLineSize {
				s.receiver.logger.Warn("msg", "Line too long without newline",
					"component", "tcp_receiver",
					"remote_addr", c.RemoteAddr().String(),
					"buffer_size", len(client.buffer))
				s.receiver.invalidRecords.Add(1)
				action = gnet.Close
			}
			break
		}

		line := bytes.TrimRight(client.buffer[:idx], "\r")
		client.buffer = client.buffer[idx+1:]
		if len(line) == 0 {
			continue
		}

		var ok bool
		ok, action = s.processLine(c, client, string(line), &out)
		if ok {
			accepted++
		}
	}

	// Compact so the backing array does not grow without bound
	if len(client.buffer) == 0 {
		client.buffer = nil
	}

	s.receiver.sessions.Touch(client.session, accepted)

	if out.Len() > 0 {
		if _, err := c.Write(out.Bytes()); err != nil {
			s.receiver.logger.Debug("msg", "Failed to write replies",
				"component", "tcp_receiver",
				"remote_addr", c.RemoteAddr().String(),
				"error", err)
			return gnet.Close
		}
	}
	return action
}

// processLine handles one command, appending its reply to out. It reports
// whether a record was accepted and the action for the connection.
func (s *tcpServer) processLine(c gnet.Conn, client *tcpClient, line string, out *bytes.Buffer) (bool, gnet.Action) {
	r := s.receiver
	cmd, rest, _ := strings.Cut(line, " ")

	switch cmd {
	case "AUTH":
		if r.verifier == nil {
			client.authenticated = true
			out.WriteString("AUTH_OK\n")
			return false, gnet.None
		}
		subject, err := r.verifier.Verify(rest)
		if err != nil {
			r.authFailures.Add(1)
			r.logger.Warn("msg", "Authentication failed",
				"component", "tcp_receiver",
				"remote_addr", c.RemoteAddr().String(),
				"error", err)
			out.WriteString("AUTH_FAIL\n")
			return false, gnet.Close
		}
		r.authSuccesses.Add(1)
		client.authenticated = true
		client.session.SetSubject(subject)
		r.logger.Info("msg", "TCP producer authenticated",
			"component", "tcp_receiver",
			"remote_addr", c.RemoteAddr().String(),
			"subject", subject)
		out.WriteString("AUTH_OK\n")
		return false, gnet.None

	case "PUT":
		if !client.authenticated {
			r.authFailures.Add(1)
			out.WriteString("AUTH_FAIL\n")
			return false, gnet.Close
		}
		rec, err := parsePut(rest)
		if err != nil {
			r.invalidRecords.Add(1)
			fmt.Fprintf(out, "ERR %s\n", err)
			return false, gnet.None
		}

		shardID, seq, err := r.ledger.Assign(rec.PartitionKey)
		if err != nil {
			if errors.Is(err, ErrThrottled) {
				r.throttled.Add(1)
				fmt.Fprintf(out, "ERR %s %s\n", errTypeThrottled, err)
				return false, gnet.None
			}
			fmt.Fprintf(out, "ERR %s\n", err)
			return false, gnet.None
		}

		rec.ShardID = shardID
		rec.SequenceNumber = seq
		rec.Subject = client.session.Subject()
		rec.Transport = "tcp"
		rec.Received = time.Now()

		r.totalRecords.Add(1)
		if r.handler != nil {
			r.handler(rec)
		}
		fmt.Fprintf(out, "OK %s %s\n", shardID, seq)
		return true, gnet.None

	default:
		r.invalidRecords.Add(1)
		fmt.Fprintf(out, "ERR unknown command %q\n", cmd)
		return false, gnet.None
	}
}

// parsePut reads "<escaped stream> <escaped key> <base64 data>"
func parsePut(args string) (Record, error) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("malformed PUT, want 3 fields got %d", len(fields))
	}
	stream, err := url.PathUnescape(fields[0])
	if err != nil || stream == "" {
		return Record{}, fmt.Errorf("invalid stream name")
	}
	pk, err := url.PathUnescape(fields[1])
	if err != nil || pk == "" {
		return Record{}, fmt.Errorf("invalid partition key")
	}
	data, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return Record{}, fmt.Errorf("data is not valid base64")
	}
	return Record{Stream: stream, PartitionKey: pk, Data: data}, nil
}
