// FILE: src/internal/receiver/http.go
package receiver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"kinlog/src/internal/auth"
	"kinlog/src/internal/config"
	"kinlog/src/internal/session"
	ktls "kinlog/src/internal/tls"
	"kinlog/src/internal/transport"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"
)

const (
	errTypeValidation = "ValidationException"
	errTypeNotFound   = "ResourceNotFoundException"
	errTypeAuth       = "UnrecognizedClientException"
	errTypeThrottled  = "ProvisionedThroughputExceededException"
)

// HTTPReceiver accepts PutRecord-style POSTs at /streams/<stream>/records
type HTTPReceiver struct {
	host        string
	port        int64
	maxBodySize int64
	ledger      *Ledger
	verifier    *auth.Verifier
	handler     Handler
	sessions    *session.Manager
	tlsManager  *ktls.ServerManager
	server      *fasthttp.Server
	parser      fastjson.ParserPool
	logger      *log.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup

	// Statistics
	totalRecords   atomic.Uint64
	invalidRecords atomic.Uint64
	authFailures   atomic.Uint64
	throttled      atomic.Uint64
	startTime      time.Time
	lastRecordTime atomic.Value // time.Time
}

// NewHTTPReceiver builds a receiver; handler may be nil
func NewHTTPReceiver(cfg *config.ReceiverConfig, ledger *Ledger, handler Handler, logger *log.Logger) (*HTTPReceiver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("receiver config is nil")
	}
	if ledger == nil {
		ledger = NewLedger(cfg.ShardCount, cfg.ShardRecordsPerSecond)
	}

	h := &HTTPReceiver{
		host:        cfg.Host,
		port:        cfg.HTTPPort,
		maxBodySize: cfg.MaxBodySize,
		ledger:      ledger,
		handler:     handler,
		sessions:    session.NewManager(5*time.Minute, nil),
		startTime:   time.Now(),
		logger:      logger,
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = 1 << 20
	}
	h.lastRecordTime.Store(time.Time{})

	if cfg.SigningKey != "" {
		v, err := auth.NewVerifier(cfg.SigningKey, "", "", logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create token verifier: %w", err)
		}
		h.verifier = v
	}

	tlsManager, err := ktls.NewServerManager(cfg.TLS, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure receiver TLS: %w", err)
	}
	h.tlsManager = tlsManager

	h.server = &fasthttp.Server{
		Handler:            h.requestHandler,
		Name:               "kinlog-receiver",
		MaxRequestBodySize: int(h.maxBodySize),
		CloseOnShutdown:    true,
	}
	return h, nil
}

// Start listens on the configured host and port and serves in the background
func (h *HTTPReceiver) Start() error {
	addr := net.JoinHostPort(h.host, fmt.Sprintf("%d", h.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	ln = h.tlsManager.Listener(ln)

	// Addr is valid as soon as Start returns
	h.mu.Lock()
	h.listener = ln
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.Serve(ln); err != nil {
			h.logger.Error("msg", "HTTP receiver failed",
				"component", "http_receiver",
				"address", addr,
				"error", err)
		}
	}()
	return nil
}

// Serve blocks serving requests from ln until Stop
func (h *HTTPReceiver) Serve(ln net.Listener) error {
	h.mu.Lock()
	h.listener = ln
	h.mu.Unlock()

	h.logger.Info("msg", "HTTP receiver listening",
		"component", "http_receiver",
		"address", ln.Addr().String(),
		"auth_required", h.verifier != nil,
		"tls", h.tlsManager != nil)
	return h.server.Serve(ln)
}

// Addr returns the bound address once serving, nil before
func (h *HTTPReceiver) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

func (h *HTTPReceiver) Stop() {
	if err := h.server.Shutdown(); err != nil {
		h.logger.Error("msg", "Error shutting down HTTP receiver",
			"component", "http_receiver",
			"error", err)
	}
	h.sessions.Stop()
	h.wg.Wait()

	h.logger.Info("msg", "HTTP receiver stopped",
		"component", "http_receiver",
		"total_records", h.totalRecords.Load())
}

func (h *HTTPReceiver) GetStats() map[string]any {
	lastRecord, _ := h.lastRecordTime.Load().(time.Time)

	stats := map[string]any{
		"type":             "http",
		"total_records":    h.totalRecords.Load(),
		"invalid_records":  h.invalidRecords.Load(),
		"auth_failures":    h.authFailures.Load(),
		"throttled":        h.throttled.Load(),
		"start_time":       h.startTime,
		"last_record_time": lastRecord,
		"sessions":         h.sessions.GetStats(),
		"ledger":           h.ledger.GetStats(),
		"tls":              h.tlsManager.GetStats(),
	}
	if h.verifier != nil {
		stats["auth"] = h.verifier.GetStats()
	}
	return stats
}

func (h *HTTPReceiver) requestHandler(ctx *fasthttp.RequestCtx) {
	stream, ok := parseRecordsPath(string(ctx.Path()))
	if !ok || !ctx.IsPost() {
		writeError(ctx, fasthttp.StatusNotFound, errTypeNotFound, "POST records to /streams/<stream>/records")
		return
	}

	var subject string
	if h.verifier != nil {
		sub, err := h.verifier.VerifyHeader(string(ctx.Request.Header.Peek("Authorization")))
		if err != nil {
			h.authFailures.Add(1)
			h.logger.Warn("msg", "Rejected unauthenticated record",
				"component", "http_receiver",
				"remote_addr", ctx.RemoteAddr().String(),
				"error", err)
			writeError(ctx, fasthttp.StatusUnauthorized, errTypeAuth, err.Error())
			return
		}
		subject = sub
	}

	body, err := transport.Decode(string(ctx.Request.Header.Peek("Content-Encoding")), ctx.PostBody(), h.maxBodySize)
	if err != nil {
		h.invalidRecords.Add(1)
		writeError(ctx, fasthttp.StatusBadRequest, errTypeValidation, err.Error())
		return
	}

	rec, err := h.parseRecord(body)
	if err != nil {
		h.invalidRecords.Add(1)
		writeError(ctx, fasthttp.StatusBadRequest, errTypeValidation, err.Error())
		return
	}
	if rec.Stream != stream {
		h.invalidRecords.Add(1)
		writeError(ctx, fasthttp.StatusBadRequest, errTypeValidation,
			fmt.Sprintf("StreamName %q does not match path stream %q", rec.Stream, stream))
		return
	}

	shardID, seq, err := h.ledger.Assign(rec.PartitionKey)
	if err != nil {
		if errors.Is(err, ErrThrottled) {
			h.throttled.Add(1)
			writeError(ctx, fasthttp.StatusBadRequest, errTypeThrottled, err.Error())
			return
		}
		writeError(ctx, fasthttp.StatusInternalServerError, "InternalFailure", err.Error())
		return
	}

	rec.ShardID = shardID
	rec.SequenceNumber = seq
	rec.Subject = subject
	rec.Transport = "http"
	rec.Received = time.Now()

	h.trackSession(ctx.RemoteAddr().String(), subject)
	h.totalRecords.Add(1)
	h.lastRecordTime.Store(rec.Received)
	if h.handler != nil {
		h.handler(rec)
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]string{
		"ShardId":        shardID,
		"SequenceNumber": seq,
	})
}

func (h *HTTPReceiver) parseRecord(body []byte) (Record, error) {
	if len(body) == 0 {
		return Record{}, fmt.Errorf("empty request body")
	}

	p := h.parser.Get()
	defer h.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return Record{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return Record{}, fmt.Errorf("request body must be a JSON object")
	}

	stream := string(v.GetStringBytes("StreamName"))
	pk := string(v.GetStringBytes("PartitionKey"))
	encoded := v.GetStringBytes("Data")

	if stream == "" {
		return Record{}, fmt.Errorf("missing required field: StreamName")
	}
	if pk == "" {
		return Record{}, fmt.Errorf("missing required field: PartitionKey")
	}

	data := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(data, encoded)
	if err != nil {
		return Record{}, fmt.Errorf("Data is not valid base64: %w", err)
	}

	return Record{Stream: stream, PartitionKey: pk, Data: data[:n]}, nil
}

// HTTP has no long-lived producer connection; one session per remote
// address and subject is kept for accounting.
func (h *HTTPReceiver) trackSession(remoteAddr, subject string) {
	key := remoteAddr + "|" + subject
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions.Get(key); ok {
		h.sessions.Touch(s, 1)
		return
	}
	s := h.sessions.CreateWithID(key, remoteAddr, "http")
	s.SetSubject(subject)
	h.sessions.Touch(s, 1)
}

// parseRecordsPath extracts the stream from /streams/<stream>/records
func parseRecordsPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/streams/")
	if !ok {
		return "", false
	}
	stream, ok := strings.CutSuffix(rest, "/records")
	if !ok || stream == "" || strings.Contains(stream, "/") {
		return "", false
	}
	return stream, true
}

func writeError(ctx *fasthttp.RequestCtx, status int, errType, message string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]string{
		"__type":  errType,
		"message": message,
	})
}
