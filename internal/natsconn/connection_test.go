package natsconn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("nats://localhost:4222")

	assert.Equal(t, "nats://localhost:4222", cfg.URL)
	assert.Equal(t, "daedalus-client", cfg.Name)
	assert.Equal(t, 10, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestConnectHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unreachable server; the cancelled context must win over the dial.
	cfg := DefaultConfig("nats://127.0.0.1:65535")
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxReconnects = 0

	conn, err := Connect(ctx, cfg, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, conn)
}

func TestToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "enrich", want: "enrich"},
		{in: "node.7", want: "node-7"},
		{in: "node 7/a", want: "node-7-a"},
		{in: "UPPER_case-ok", want: "UPPER_case-ok"},
		{in: "", want: "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Token(tt.in))
	}
}
