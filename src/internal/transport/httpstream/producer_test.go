// FILE: src/internal/transport/httpstream/producer_test.go
package httpstream

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"kinlog/src/internal/auth"
	"kinlog/src/internal/config"
	"kinlog/src/internal/receiver"
	"kinlog/src/internal/transport"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"
)

const testKey = "httpstream-test-signing-key-0123456789"

type harness struct {
	ln      *fasthttputil.InmemoryListener
	mu      sync.Mutex
	records []receiver.Record
}

func (h *harness) handle(r receiver.Record) {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
}

func (h *harness) received() []receiver.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]receiver.Record(nil), h.records...)
}

func (h *harness) dial(string) (net.Conn, error) {
	return h.ln.Dial()
}

func startReceiver(t *testing.T, mutate func(*config.ReceiverConfig)) *harness {
	t.Helper()
	cfg := &config.ReceiverConfig{
		Host:        "127.0.0.1",
		MaxBodySize: 1 << 20,
		ShardCount:  1,
	}
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{ln: fasthttputil.NewInmemoryListener()}
	r, err := receiver.NewHTTPReceiver(cfg, nil, h.handle, log.NewLogger())
	require.NoError(t, err)
	go r.Serve(h.ln)
	t.Cleanup(func() {
		r.Stop()
		h.ln.Close()
	})
	return h
}

func testTransportConfig() *config.TransportConfig {
	return &config.TransportConfig{
		Type:        "http",
		Endpoint:    "http://stream.local",
		Workers:     2,
		BufferSize:  100,
		TimeoutMS:   2000,
		Compression: "none",
	}
}

func newProducer(t *testing.T, cfg *config.TransportConfig, tokens TokenSource, h *harness) *Producer {
	t.Helper()
	p, err := New(cfg, tokens, log.NewLogger(), WithDialer(h.dial))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func waitAck(t *testing.T, f *transport.Future) (transport.Ack, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.Wait(ctx)
}

func TestProducer_Delivers(t *testing.T) {
	for _, compression := range []string{"none", "gzip", "zstd"} {
		t.Run(compression, func(t *testing.T) {
			h := startReceiver(t, nil)
			cfg := testTransportConfig()
			cfg.Compression = compression
			p := newProducer(t, cfg, nil, h)

			f, err := p.Submit("my-stream", "pk-1", []byte(`{"event":"evt"}`))
			require.NoError(t, err)

			ack, err := waitAck(t, f)
			require.NoError(t, err)
			assert.Equal(t, "shardId-000000000000", ack.ShardID)
			assert.Equal(t, "00000000000000000001", ack.SequenceNumber)

			records := h.received()
			require.Len(t, records, 1)
			assert.Equal(t, "my-stream", records[0].Stream)
			assert.Equal(t, "pk-1", records[0].PartitionKey)
			assert.Equal(t, []byte(`{"event":"evt"}`), records[0].Data)
		})
	}
}

func TestProducer_FlushAndClose(t *testing.T) {
	h := startReceiver(t, nil)
	p := newProducer(t, testTransportConfig(), nil, h)

	var acked sync.WaitGroup
	for i := 0; i < 20; i++ {
		f, err := p.Submit("my-stream", "pk", []byte("x"))
		require.NoError(t, err)
		acked.Add(1)
		f.OnComplete(func(_ transport.Ack, err error) {
			assert.NoError(t, err)
			acked.Done()
		})
	}

	p.Flush()
	assert.Len(t, h.received(), 20)
	assert.Equal(t, uint64(20), p.GetStats()["total_acked"])
	acked.Wait()

	require.NoError(t, p.Close())
	_, err := p.Submit("my-stream", "pk", []byte("x"))
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.NoError(t, p.Close())
}

func TestProducer_Auth(t *testing.T) {
	h := startReceiver(t, func(c *config.ReceiverConfig) { c.SigningKey = testKey })

	t.Run("MissingToken", func(t *testing.T) {
		p := newProducer(t, testTransportConfig(), nil, h)
		f, err := p.Submit("my-stream", "pk", []byte("x"))
		require.NoError(t, err)

		_, err = waitAck(t, f)
		var serr *StatusError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, 401, serr.Code)
		assert.Equal(t, "UnrecognizedClientException", serr.Type)
	})

	t.Run("SignedToken", func(t *testing.T) {
		signer, err := auth.NewSigner(testKey, "kinlog", "", "myApp", time.Hour, log.NewLogger())
		require.NoError(t, err)

		p := newProducer(t, testTransportConfig(), signer, h)
		f, err := p.Submit("my-stream", "pk", []byte("x"))
		require.NoError(t, err)

		_, err = waitAck(t, f)
		require.NoError(t, err)

		records := h.received()
		require.NotEmpty(t, records)
		assert.Equal(t, "myApp", records[len(records)-1].Subject)
	})
}

func TestProducer_Throttled(t *testing.T) {
	h := startReceiver(t, func(c *config.ReceiverConfig) { c.ShardRecordsPerSecond = 1 })
	cfg := testTransportConfig()
	cfg.Workers = 1
	p := newProducer(t, cfg, nil, h)

	first, err := p.Submit("my-stream", "pk", []byte("a"))
	require.NoError(t, err)
	second, err := p.Submit("my-stream", "pk", []byte("b"))
	require.NoError(t, err)

	_, err = waitAck(t, first)
	require.NoError(t, err)

	_, err = waitAck(t, second)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.True(t, serr.Throttled())
	assert.Equal(t, uint64(1), p.GetStats()["total_throttled"])
}

func TestProducer_BufferFull(t *testing.T) {
	h := startReceiver(t, nil)
	release := make(chan struct{})

	cfg := testTransportConfig()
	cfg.Workers = 1
	cfg.BufferSize = 1
	p, err := New(cfg, nil, log.NewLogger(), WithDialer(func(addr string) (net.Conn, error) {
		<-release
		return h.ln.Dial()
	}))
	require.NoError(t, err)

	var futures []*transport.Future
	rejected := 0
	for i := 0; i < 3; i++ {
		f, err := p.Submit("my-stream", "pk", []byte("x"))
		if err != nil {
			assert.ErrorIs(t, err, transport.ErrBufferFull)
			rejected++
			continue
		}
		futures = append(futures, f)
	}
	assert.GreaterOrEqual(t, rejected, 1)

	close(release)
	require.NoError(t, p.Close())
	for _, f := range futures {
		_, err := waitAck(t, f)
		assert.NoError(t, err)
	}
}

func TestNew_Validation(t *testing.T) {
	logger := log.NewLogger()

	cfg := testTransportConfig()
	cfg.Endpoint = "localhost:4567"
	_, err := New(cfg, nil, logger)
	assert.Error(t, err)

	cfg = testTransportConfig()
	cfg.Compression = "brotli"
	_, err = New(cfg, nil, logger)
	assert.Error(t, err)

	_, err = New(nil, nil, logger)
	assert.Error(t, err)
}
