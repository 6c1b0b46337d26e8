// FILE: src/internal/transport/httpstream/producer.go
package httpstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"kinlog/src/internal/config"
	ltls "kinlog/src/internal/tls"
	"kinlog/src/internal/transport"
	"kinlog/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"
)

// TokenSource supplies bearer tokens for outgoing requests
type TokenSource interface {
	Token() (string, error)
}

// StatusError is a non-2xx reply from the stream endpoint
type StatusError struct {
	Code    int
	Type    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("stream returned %d %s: %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("stream returned %d: %s", e.Code, e.Message)
}

// Throttled reports whether the shard rejected the record for capacity
func (e *StatusError) Throttled() bool {
	return e.Type == "ProvisionedThroughputExceededException"
}

// Option adjusts a Producer
type Option func(*Producer)

// WithDialer replaces the network dialer, e.g. with an in-memory listener
func WithDialer(dial fasthttp.DialFunc) Option {
	return func(p *Producer) { p.client.Dial = dial }
}

// putRecord is the request body. Data marshals as standard base64.
type putRecord struct {
	StreamName   string
	PartitionKey string
	Data         []byte
}

type job struct {
	record transport.Record
	future *transport.Future
}

// Producer posts each record to <endpoint>/streams/<stream>/records from a
// fixed pool of workers. Submissions queue up to the configured buffer size.
type Producer struct {
	endpoint   string
	client     *fasthttp.Client
	tlsManager *ltls.ClientManager
	codec      *transport.Codec
	tokens     TokenSource
	limiter    *rate.Limiter
	timeout    time.Duration
	parser     fastjson.ParserPool
	logger     *log.Logger

	queue   chan job
	pending *transport.Pending
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup

	// Statistics
	totalSubmitted atomic.Uint64
	totalAcked     atomic.Uint64
	totalFailed    atomic.Uint64
	totalRejected  atomic.Uint64
	totalThrottled atomic.Uint64
	bytesSent      atomic.Uint64
	lastAck        atomic.Value // time.Time
}

// New starts a producer for cfg. tokens may be nil when auth is off.
func New(cfg *config.TransportConfig, tokens TokenSource, logger *log.Logger, opts ...Option) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("transport config is nil")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid stream endpoint %q", cfg.Endpoint)
	}

	codec, err := transport.NewCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
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
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		codec:    codec,
		tokens:   tokens,
		timeout:  timeout,
		logger:   logger,
		queue:    make(chan job, bufferSize),
		pending:  transport.NewPending(),
		client: &fasthttp.Client{
			Name:                          version.UserAgent(),
			MaxConnsPerHost:               workers,
			MaxIdleConnDuration:           30 * time.Second,
			ReadTimeout:                   timeout,
			WriteTimeout:                  timeout,
			DisableHeaderNamesNormalizing: true,
		},
	}
	p.lastAck.Store(time.Time{})

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if u.Scheme == "https" {
		tlsManager, err := ltls.NewClientManager(cfg.TLS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS client manager: %w", err)
		}
		p.tlsManager = tlsManager
		p.client.TLSConfig = tlsManager.ForAddress(u.Host)
	}

	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	logger.Info("msg", "HTTP stream producer started",
		"component", "http_producer",
		"endpoint", p.endpoint,
		"workers", workers,
		"buffer_size", bufferSize,
		"compression", codec.ContentEncoding(),
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

// Close stops intake and waits for queued records to be sent
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.client.CloseIdleConnections()

	p.logger.Info("msg", "HTTP stream producer closed",
		"component", "http_producer",
		"total_acked", p.totalAcked.Load(),
		"total_failed", p.totalFailed.Load())
	return nil
}

func (p *Producer) GetStats() map[string]any {
	lastAck, _ := p.lastAck.Load().(time.Time)
	return map[string]any{
		"type":            "http",
		"endpoint":        p.endpoint,
		"total_submitted": p.totalSubmitted.Load(),
		"total_acked":     p.totalAcked.Load(),
		"total_failed":    p.totalFailed.Load(),
		"total_rejected":  p.totalRejected.Load(),
		"total_throttled": p.totalThrottled.Load(),
		"bytes_sent":      p.bytesSent.Load(),
		"queued":          len(p.queue),
		"pending":         p.pending.Len(),
		"last_ack":        lastAck,
		"tls":             p.tlsManager.GetStats(),
	}
}

func (p *Producer) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		ack, err := p.send(j.record)
		if err != nil {
			p.totalFailed.Add(1)
		} else {
			p.totalAcked.Add(1)
			p.lastAck.Store(time.Now())
		}
		j.future.Complete(ack, err)
		p.pending.Done()
	}
}

func (p *Producer) send(rec transport.Record) (transport.Ack, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(context.Background()); err != nil {
			return transport.Ack{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(putRecord{
		StreamName:   rec.Stream,
		PartitionKey: rec.PartitionKey,
		Data:         rec.Payload,
	})
	if err != nil {
		return transport.Ack{}, fmt.Errorf("failed to encode record: %w", err)
	}
	body, err = p.codec.Encode(body)
	if err != nil {
		return transport.Ack{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.endpoint + "/streams/" + url.PathEscape(rec.Stream) + "/records")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if enc := p.codec.ContentEncoding(); enc != "" {
		req.Header.Set("Content-Encoding", enc)
	}
	if p.tokens != nil {
		token, err := p.tokens.Token()
		if err != nil {
			return transport.Ack{}, fmt.Errorf("failed to obtain token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.SetBody(body)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		p.logger.Debug("msg", "Stream request failed",
			"component", "http_producer",
			"stream", rec.Stream,
			"error", err)
		return transport.Ack{}, fmt.Errorf("request failed: %w", err)
	}
	p.bytesSent.Add(uint64(len(body)))

	return p.parseResponse(resp.StatusCode(), resp.Body())
}

func (p *Producer) parseResponse(status int, body []byte) (transport.Ack, error) {
	parser := p.parser.Get()
	defer p.parser.Put(parser)

	v, parseErr := parser.ParseBytes(body)

	if status < 200 || status >= 300 {
		serr := &StatusError{Code: status, Message: strings.TrimSpace(string(body))}
		if parseErr == nil {
			serr.Type = string(v.GetStringBytes("__type"))
			if msg := v.GetStringBytes("message"); len(msg) > 0 {
				serr.Message = string(msg)
			}
		}
		if serr.Throttled() {
			p.totalThrottled.Add(1)
		}
		return transport.Ack{}, serr
	}

	if parseErr != nil {
		return transport.Ack{}, fmt.Errorf("invalid stream response: %w", parseErr)
	}
	ack := transport.Ack{
		ShardID:        string(v.GetStringBytes("ShardId")),
		SequenceNumber: string(v.GetStringBytes("SequenceNumber")),
	}
	if ack.SequenceNumber == "" {
		return transport.Ack{}, fmt.Errorf("stream response missing SequenceNumber")
	}
	return ack, nil
}
