// FILE: src/internal/transport/tcpstream/producer_test.go
package tcpstream

import (
	"context"
	"errors"
	"fmt"
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
)

const testKey = "tcpstream-test-signing-key-0123456789"

type sink struct {
	mu      sync.Mutex
	records []receiver.Record
}

func (s *sink) handle(r receiver.Record) {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
}

func (s *sink) all() []receiver.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]receiver.Record(nil), s.records...)
}

func startReceiver(t *testing.T, signingKey string) (string, *sink) {
	t.Helper()
	s := &sink{}
	r, err := receiver.NewTCPReceiver(&config.ReceiverConfig{
		Host:        "127.0.0.1",
		MaxBodySize: 1 << 20,
		ShardCount:  1,
		SigningKey:  signingKey,
	}, nil, s.handle, log.NewLogger())
	require.NoError(t, err)
	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)
	return r.Addr(), s
}

func newProducer(t *testing.T, addr string, tokens TokenSource) *Producer {
	t.Helper()
	p, err := New(&config.TransportConfig{
		Type:       "tcp",
		Address:    addr,
		BufferSize: 100,
		TimeoutMS:  2000,
	}, tokens, log.NewLogger())
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

func TestProducer_DeliversInOrder(t *testing.T) {
	addr, s := startReceiver(t, "")
	p := newProducer(t, addr, nil)

	var futures []*transport.Future
	for i := 0; i < 10; i++ {
		f, err := p.Submit("my-stream", fmt.Sprintf("key %d", i), []byte(fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
		futures = append(futures, f)
	}

	for i, f := range futures {
		ack, err := waitAck(t, f)
		require.NoError(t, err)
		assert.Equal(t, "shardId-000000000000", ack.ShardID)
		assert.Equal(t, fmt.Sprintf("%020d", i+1), ack.SequenceNumber)
	}

	p.Flush()
	records := s.all()
	require.Len(t, records, 10)
	assert.Equal(t, "key 3", records[3].PartitionKey)
	assert.Equal(t, []byte(`{"n":3}`), records[3].Data)
	assert.Equal(t, uint64(10), p.GetStats()["total_acked"])
	assert.Equal(t, uint64(1), p.GetStats()["connects"])
}

func TestProducer_StreamNameWithSpaces(t *testing.T) {
	addr, s := startReceiver(t, "")
	p := newProducer(t, addr, nil)

	f, err := p.Submit("my stream", "pk-1", []byte(`{}`))
	require.NoError(t, err)
	_, err = waitAck(t, f)
	require.NoError(t, err)

	records := s.all()
	require.Len(t, records, 1)
	assert.Equal(t, "my stream", records[0].Stream)
	assert.Equal(t, "pk-1", records[0].PartitionKey)
}

func TestProducer_Auth(t *testing.T) {
	addr, s := startReceiver(t, testKey)

	t.Run("SignedToken", func(t *testing.T) {
		signer, err := auth.NewSigner(testKey, "kinlog", "", "myApp", time.Hour, log.NewLogger())
		require.NoError(t, err)
		p := newProducer(t, addr, signer)

		f, err := p.Submit("my-stream", "pk", []byte("x"))
		require.NoError(t, err)
		_, err = waitAck(t, f)
		require.NoError(t, err)

		records := s.all()
		require.NotEmpty(t, records)
		assert.Equal(t, "myApp", records[len(records)-1].Subject)
	})

	t.Run("WrongKey", func(t *testing.T) {
		signer, err := auth.NewSigner("some-other-signing-key-0123456789", "kinlog", "", "myApp", time.Hour, log.NewLogger())
		require.NoError(t, err)
		p := newProducer(t, addr, signer)

		f, err := p.Submit("my-stream", "pk", []byte("x"))
		require.NoError(t, err)
		_, err = waitAck(t, f)
		assert.ErrorIs(t, err, ErrAuthFailed)
	})

	t.Run("NoToken", func(t *testing.T) {
		p := newProducer(t, addr, nil)

		f, err := p.Submit("my-stream", "pk", []byte("x"))
		require.NoError(t, err)
		_, err = waitAck(t, f)
		assert.ErrorIs(t, err, ErrAuthFailed)
	})
}

func TestProducer_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	p := newProducer(t, addr, nil)
	f, err := p.Submit("my-stream", "pk", []byte("x"))
	require.NoError(t, err)

	_, err = waitAck(t, f)
	assert.Error(t, err)
	assert.Equal(t, uint64(1), p.GetStats()["connect_errors"])
}

func TestProducer_Close(t *testing.T) {
	addr, _ := startReceiver(t, "")
	p := newProducer(t, addr, nil)

	f, err := p.Submit("my-stream", "pk", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, p.Close())
	_, err = waitAck(t, f)
	assert.NoError(t, err)

	_, err = p.Submit("my-stream", "pk", []byte("x"))
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.NoError(t, p.Close())
}

func TestNew_InvalidAddress(t *testing.T) {
	_, err := New(&config.TransportConfig{Address: "no-port"}, nil, log.NewLogger())
	assert.Error(t, err)
}

func TestParseReply(t *testing.T) {
	ack, err := parseReply("OK shardId-000000000001 00000000000000000042")
	require.NoError(t, err)
	assert.Equal(t, transport.Ack{ShardID: "shardId-000000000001", SequenceNumber: "00000000000000000042"}, ack)

	_, err = parseReply("ERR ProvisionedThroughputExceededException rate exceeded for shard")
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.True(t, rerr.Throttled())

	_, err = parseReply("ERR malformed PUT")
	require.True(t, errors.As(err, &rerr))
	assert.False(t, rerr.Throttled())

	_, err = parseReply("OK onlyshard")
	assert.Error(t, err)

	_, err = parseReply("HELLO")
	assert.Error(t, err)
}
