package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalnet "github.com/AgniRoy1234/sse-server/internal/net"
	"github.com/AgniRoy1234/sse-server/tools"
)

var log *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	log = l.Sugar()
}

func startServer(t *testing.T) (srv *Server, port int) {
	t.Helper()

	port, err := internalnet.GetEphemeralTCPPort()
	require.NoError(t, err)

	registry := tools.Builtin(&tools.ShellRunner{Log: log, Dir: t.TempDir()})
	srv, err = New(registry, WithListenAddr(fmt.Sprintf("127.0.0.1:%d", port)))
	require.NoError(t, err)

	go srv.Run()
	t.Cleanup(func() {
		require.NoError(t, srv.Stop())
	})
	return srv, port
}

func connectClient(t *testing.T, port int) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := NewClient(log, "127.0.0.1", port)
	require.NoError(t, err)
	require.NoError(t, client.WaitForServer(ctx))
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(client.Close)
	return client
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	_, port := startServer(t)
	client := connectClient(t, port)

	ack, err := client.Initialize(ctx)
	require.NoError(t, err)
	require.NotNil(t, ack.Server)
	assert.Equal(t, Name, ack.Server.Name)
	require.Len(t, ack.Tools, 2)
	assert.Equal(t, "run_command", ack.Tools[0].Name)
	assert.Equal(t, "hello_world", ack.Tools[1].Name)

	out, err := client.CallTool(ctx, "run_command", map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)

	out, err = client.CallTool(ctx, "hello_world", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", out)
}

func TestUnknownToolKeepsSessionOpen(t *testing.T) {
	ctx := context.Background()
	_, port := startServer(t)
	client := connectClient(t, port)

	_, err := client.Initialize(ctx)
	require.NoError(t, err)

	_, err = client.CallTool(ctx, "nope", nil)
	require.ErrorContains(t, err, "unknown tool")

	// The error frame must not have torn down the session.
	out, err := client.CallTool(ctx, "hello_world", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", out)
}

func TestConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	_, port := startServer(t)
	client := connectClient(t, port)

	_, err := client.Initialize(ctx)
	require.NoError(t, err)

	const calls = 8
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		i := i
		go func() {
			out, err := client.CallTool(ctx, "run_command", map[string]any{"command": fmt.Sprintf("echo %d", i)})
			if err == nil && out != fmt.Sprintf("%d\n", i) {
				err = fmt.Errorf("unexpected output %q for call %d", out, i)
			}
			errs <- err
		}()
	}
	for i := 0; i < calls; i++ {
		require.NoError(t, <-errs)
	}
}

func TestPostToUnknownSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, port := startServer(t)

	client, err := NewClient(log, "127.0.0.1", port)
	require.NoError(t, err)
	require.NoError(t, client.WaitForServer(ctx))

	url := fmt.Sprintf("http://127.0.0.1:%d/messages/?session_id=bogus", port)
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(`{"tool":"hello_world"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostMalformedFrame(t *testing.T) {
	ctx := context.Background()
	_, port := startServer(t)
	client := connectClient(t, port)

	_, err := client.Initialize(ctx)
	require.NoError(t, err)

	resp, err := http.Post(client.MessageURL(), "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostAfterSSEClose(t *testing.T) {
	ctx := context.Background()
	srv, port := startServer(t)
	client := connectClient(t, port)

	_, err := client.Initialize(ctx)
	require.NoError(t, err)
	messageURL := client.MessageURL()

	client.Close()

	// The server deregisters the session once the stream drops.
	require.Eventually(t, func() bool {
		return srv.sessions.len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Post(messageURL, "application/json", bytes.NewReader([]byte(`{"tool":"hello_world"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, port := startServer(t)

	client, err := NewClient(log, "127.0.0.1", port)
	require.NoError(t, err)
	require.NoError(t, client.WaitForServer(ctx))

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, health.ActiveSessions)

	require.NoError(t, client.Connect(ctx))
	t.Cleanup(client.Close)

	health, err = client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, health.ActiveSessions)
}
