// FILE: src/internal/transport/tcpstream/producer.go
package tcpstream

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"kinlog/src/internal/config"
	ltls "kinlog/src/internal/tls"
	"kinlog/src/internal/transport"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

var (
	// ErrAuthFailed is returned when the receiver refuses the token
	ErrAuthFailed = errors.New("stream authentication failed")
	// ErrConnectionLost fails records whose reply never arrived
	ErrConnectionLost = errors.New("stream connection lost")
)

// TokenSource supplies the token sent in the AUTH handshake
type TokenSource interface {
	Token() (string, error)
}

// RemoteError is an ERR reply for one record
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return "stream rejected record: " + e.Reason
}

func (e *RemoteError) Throttled() bool {
	return strings.HasPrefix(e.Reason, "ProvisionedThroughputExceededException")
}

type job struct {
	record transport.Record
	future *transport.Future
}

// Producer streams PUT lines over one persistent connection and matches
// OK/ERR replies to records in order. The connection is re-established on
// the next record after a failure.
type Producer struct {
	address    string
	tlsManager *ltls.ClientManager
	tokens     TokenSource
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *log.Logger

	queue   chan job
	pending *transport.Pending
	mu      sync.RWMutex
	closed  bool
	writer  sync.WaitGroup
	readers sync.WaitGroup

	connMu sync.Mutex
	conn   *streamConn

	// Statistics
	totalSubmitted atomic.Uint64
	totalAcked     atomic.Uint64
	totalFailed    atomic.Uint64
	totalRejected  atomic.Uint64
	connects       atomic.Uint64
	connectErrors  atomic.Uint64
}

// New starts a producer for cfg.Address. tokens may be nil when auth is off.
func New(cfg *config.TransportConfig, tokens TokenSource, logger *log.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("transport config is nil")
	}
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return nil, fmt.Errorf("invalid stream address %q: %w", cfg.Address, err)
	}

	tlsManager, err := ltls.NewClientManager(cfg.TLS, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS client manager: %w", err)
	}

	bufferSize := cfg.BufferSize
	if bufferSize < 1 {
		bufferSize = 1
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	p := &Producer{
		address:    cfg.Address,
		tlsManager: tlsManager,
		tokens:     tokens,
		timeout:    timeout,
		logger:     logger,
		queue:      make(chan job, bufferSize),
		pending:    transport.NewPending(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	p.writer.Add(1)
	go p.writeLoop()

	logger.Info("msg", "TCP stream producer started",
		"component", "tcp_producer",
		"address", p.address,
		"buffer_size", bufferSize,
		"tls", tlsManager != nil,
		"auth", tokens != nil)
	return p, nil
}

func (p *Producer) Submit(stream, partitionKey string, payload []byte) (*transport.Future, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, transport.ErrClosed
	}

	j := job{
		record: transport.Record{Stream: stream, PartitionKey: partitionKey, Payload: payload},
		future: transport.NewFuture(),
	}
	p.pending.Add()
	select {
	case p.queue <- j:
		p.totalSubmitted.Add(1)
		return j.future, nil
	default:
		p.pending.Done()
		p.totalRejected.Add(1)
		return nil, transport.ErrBufferFull
	}
}

func (p *Producer) Flush() {
	p.pending.Wait()
}

// Close sends what is queued, waits up to the timeout for replies, then
// drops the connection. Records still unanswered fail with ErrClosed.
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.writer.Wait()

	drained := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(p.timeout):
		p.logger.Warn("msg", "Timed out waiting for stream replies",
			"component", "tcp_producer",
			"pending", p.pending.Len())
	}

	p.connMu.Lock()
	if p.conn != nil {
		p.conn.fail(transport.ErrClosed)
		p.conn = nil
	}
	p.connMu.Unlock()
	p.readers.Wait()
	<-drained

	p.logger.Info("msg", "TCP stream producer closed",
		"component", "tcp_producer",
		"total_acked", p.totalAcked.Load(),
		"total_failed", p.totalFailed.Load())
	return nil
}

func (p *Producer) GetStats() map[string]any {
	p.connMu.Lock()
	connected := p.conn != nil && !p.conn.isDead()
	p.connMu.Unlock()

	return map[string]any{
		"type":            "tcp",
		"address":         p.address,
		"connected":       connected,
		"total_submitted": p.totalSubmitted.Load(),
		"total_acked":     p.totalAcked.Load(),
		"total_failed":    p.totalFailed.Load(),
		"total_rejected":  p.totalRejected.Load(),
		"connects":        p.connects.Load(),
		"connect_errors":  p.connectErrors.Load(),
		"queued":          len(p.queue),
		"pending":         p.pending.Len(),
		"tls":             p.tlsManager.GetStats(),
	}
}

func (p *Producer) complete(j job, ack transport.Ack, err error) {
	if err != nil {
		p.totalFailed.Add(1)
	} else {
		p.totalAcked.Add(1)
	}
	j.future.Complete(ack, err)
	p.pending.Done()
}

func (p *Producer) writeLoop() {
	defer p.writer.Done()

	for j := range p.queue {
		if p.limiter != nil {
			if err := p.limiter.Wait(context.Background()); err != nil {
				p.complete(j, transport.Ack{}, fmt.Errorf("rate limiter: %w", err))
				continue
			}
		}

		c, err := p.connection()
		if err != nil {
			p.complete(j, transport.Ack{}, err)
			continue
		}

		if !c.push(j) {
			// Reader failed the connection between lookup and push
			p.complete(j, transport.Ack{}, ErrConnectionLost)
			continue
		}

		if err := c.writeRecord(j.record, p.timeout, len(p.queue) == 0); err != nil {
			p.logger.Warn("msg", "Stream write failed",
				"component", "tcp_producer",
				"address", p.address,
				"error", err)
			c.fail(fmt.Errorf("%w: %v", ErrConnectionLost, err))
		}
	}

	// Push out anything still buffered
	p.connMu.Lock()
	if c := p.conn; c != nil && !c.isDead() {
		if err := c.flush(p.timeout); err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrConnectionLost, err))
		}
	}
	p.connMu.Unlock()
}

// connection returns the live connection, dialing a new one if needed
func (p *Producer) connection() (*streamConn, error) {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.conn != nil && !p.conn.isDead() {
		return p.conn, nil
	}
	p.conn = nil

	c, err := p.dial()
	if err != nil {
		p.connectErrors.Add(1)
		p.logger.Warn("msg", "Failed to connect to stream",
			"component", "tcp_producer",
			"address", p.address,
			"error", err)
		return nil, err
	}
	p.connects.Add(1)
	p.conn = c

	p.readers.Add(1)
	go func() {
		defer p.readers.Done()
		c.readLoop()
	}()
	return c, nil
}

func (p *Producer) dial() (*streamConn, error) {
	dialer := &net.Dialer{Timeout: p.timeout, KeepAlive: 30 * time.Second}

	var nc net.Conn
	var err error
	if tlsConfig := p.tlsManager.ForAddress(p.address); tlsConfig != nil {
		nc, err = tls.DialWithDialer(dialer, "tcp", p.address, tlsConfig)
	} else {
		nc, err = dialer.Dial("tcp", p.address)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.address, err)
	}

	c := &streamConn{
		producer: p,
		nc:       nc,
		r:        bufio.NewReader(nc),
		w:        bufio.NewWriter(nc),
		dead:     make(chan struct{}),
	}

	if p.tokens != nil {
		if err := c.authenticate(p.tokens, p.timeout); err != nil {
			nc.Close()
			return nil, err
		}
	}

	p.logger.Debug("msg", "Connected to stream",
		"component", "tcp_producer",
		"address", p.address,
		"local_addr", nc.LocalAddr().String())
	return c, nil
}

// streamConn is one connection with its queue of records awaiting replies
type streamConn struct {
	producer *Producer
	nc       net.Conn
	r        *bufio.Reader
	w        *bufio.Writer

	mu       sync.Mutex
	inflight []job
	dead     chan struct{}
	closed   bool
}

func (c *streamConn) authenticate(tokens TokenSource, timeout time.Duration) error {
	token, err := tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}

	deadline := time.Now().Add(timeout)
	c.nc.SetDeadline(deadline)
	defer c.nc.SetDeadline(time.Time{})

	if _, err := c.w.WriteString("AUTH " + token + "\n"); err != nil {
		return fmt.Errorf("auth write: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("auth write: %w", err)
	}

	reply, err := c.r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("auth read: %w", err)
	}
	if strings.TrimRight(reply, "\r\n") != "AUTH_OK" {
		return ErrAuthFailed
	}
	return nil
}

func (c *streamConn) isDead() bool {
	select {
	case <-c.dead:
		return true
	default:
		return false
	}
}

// push queues j for a reply; false when the connection already failed
func (c *streamConn) push(j job) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.inflight = append(c.inflight, j)
	return true
}

func (c *streamConn) pop() (job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inflight) == 0 {
		return job{}, false
	}
	j := c.inflight[0]
	c.inflight[0] = job{}
	c.inflight = c.inflight[1:]
	return j, true
}

// fail closes the connection and fails every record awaiting a reply
func (c *streamConn) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.dead)
	inflight := c.inflight
	c.inflight = nil
	c.mu.Unlock()

	c.nc.Close()
	for _, j := range inflight {
		c.producer.complete(j, transport.Ack{}, err)
	}
}

func (c *streamConn) writeRecord(rec transport.Record, timeout time.Duration, flush bool) error {
	c.nc.SetWriteDeadline(time.Now().Add(timeout))

	c.w.WriteString("PUT ")
	c.w.WriteString(url.PathEscape(rec.Stream))
	c.w.WriteByte(' ')
	c.w.WriteString(url.PathEscape(rec.PartitionKey))
	c.w.WriteByte(' ')
	enc := base64.NewEncoder(base64.StdEncoding, c.w)
	enc.Write(rec.Payload)
	enc.Close()
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	if flush {
		return c.w.Flush()
	}
	return nil
}

func (c *streamConn) flush(timeout time.Duration) error {
	c.nc.SetWriteDeadline(time.Now().Add(timeout))
	return c.w.Flush()
}

func (c *streamConn) readLoop() {
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			if !c.isDead() {
				c.producer.logger.Debug("msg", "Stream connection closed",
					"component", "tcp_producer",
					"error", err)
			}
			c.fail(fmt.Errorf("%w: %v", ErrConnectionLost, err))
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "AUTH_FAIL" {
			c.fail(ErrAuthFailed)
			return
		}

		j, ok := c.pop()
		if !ok {
			c.producer.logger.Warn("msg", "Unexpected reply from stream",
				"component", "tcp_producer",
				"reply", line)
			continue
		}

		ack, rerr := parseReply(line)
		c.producer.complete(j, ack, rerr)
	}
}

// parseReply reads "OK <shard> <sequence>" or "ERR <reason>"
func parseReply(line string) (transport.Ack, error) {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "OK":
		shard, seq, ok := strings.Cut(rest, " ")
		if !ok || shard == "" || seq == "" {
			return transport.Ack{}, fmt.Errorf("malformed OK reply: %q", line)
		}
		return transport.Ack{ShardID: shard, SequenceNumber: seq}, nil
	case "ERR":
		return transport.Ack{}, &RemoteError{Reason: rest}
	default:
		return transport.Ack{}, fmt.Errorf("unexpected reply: %q", line)
	}
}
