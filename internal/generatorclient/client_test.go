package generatorclient

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/lzjever/escn/internal/core"
	"github.com/lzjever/escn/internal/generatorsvc"
)

const bufSize = 1 << 20

func startServer(t *testing.T) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer(grpc.UnaryInterceptor(generatorsvc.LoggingInterceptor(zap.NewNop())))
	generatorsvc.Register(srv, generatorsvc.NewServer(core.NewGenerator(), zap.NewNop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis
}

func dial(t *testing.T, lis *bufconn.Listener) *Client {
	t.Helper()
	c, err := New("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGenerateOverGRPC(t *testing.T) {
	c := dial(t, startServer(t))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		escn, err := c.Generate(ctx, "12", "987654321")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(escn, "-012987654321"), escn)
		assert.False(t, seen[escn], "duplicate %s", escn)
		seen[escn] = true
	}
}

func TestGenerateErrorCodesOverGRPC(t *testing.T) {
	c := dial(t, startServer(t))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Generate(ctx, "1", "abc")
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrInvalidPIC), "got %v", err)

	_, err = c.Generate(ctx, "1234", "123456789")
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrInvalidPrefix), "got %v", err)
}

func TestGeneratorUnavailable(t *testing.T) {
	lis := bufconn.Listen(bufSize)
	lis.Close()
	c := dial(t, lis)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Generate(ctx, "1", "123456789")
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrGeneratorUnavailable), "got %v", err)
}

func TestHealthOverGRPC(t *testing.T) {
	c := dial(t, startServer(t))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: generatorsvc.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.GetStatus())
}
