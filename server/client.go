package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/AgniRoy1234/sse-server/server/protocol"
)

// ErrSessionNotFound is returned when a posted frame references a session
// the server no longer knows about.
var ErrSessionNotFound = errors.New("session not found")

// Client talks to a terminal tool server over the SSE duplex channel.
// Frames are posted through a retrying HTTP client; responses arrive on
// the event stream and are correlated back to callers by request id.
type Client struct {
	Logger     *zap.SugaredLogger
	HTTPClient *http.Client

	baseURL                  string
	customizeRetryableClient func(*retryablehttp.Client)
	waitInterval             time.Duration

	// streamClient has no timeout since the SSE stream is long-lived.
	streamClient *http.Client
	streamCancel func()
	messageURL   string

	pendingMut sync.Mutex
	pending    map[string]chan protocol.Response

	connected chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

type ClientOption func(c *Client)

func WithClientWaitInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.waitInterval = d
	}
}

func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.Logger = l.Named("terminal_client").Sugar()
	}
}

func WithCustomizeRetryableClient(f func(r *retryablehttp.Client)) ClientOption {
	return func(c *Client) {
		c.customizeRetryableClient = f
	}
}

type logAdapter struct {
	*zap.SugaredLogger
}

func (a *logAdapter) Printf(msg string, args ...interface{}) { a.Debugf(msg, args...) }

func NewClient(log *zap.SugaredLogger, host string, port int, opts ...ClientOption) (*Client, error) {
	c := &Client{
		Logger:       log.Named("terminal_client"),
		baseURL:      fmt.Sprintf("http://%s:%d", host, port),
		waitInterval: 100 * time.Millisecond,
		streamClient: &http.Client{},
		pending:      map[string]chan protocol.Response{},
		connected:    make(chan struct{}),
		closed:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return 10 * time.Millisecond
	}
	retryClient.RetryMax = 10
	retryClient.Logger = &logAdapter{SugaredLogger: c.Logger}

	if c.customizeRetryableClient != nil {
		c.customizeRetryableClient(retryClient)
	}

	c.HTTPClient = retryClient.StandardClient()

	return c, nil
}

// Connect opens the SSE stream and waits for the server to announce the
// message endpoint. It returns once the duplex channel is usable.
func (c *Client) Connect(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	c.streamCancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.baseURL+"/sse", nil)
	if err != nil {
		cancel()
		return fmt.Errorf("building stream request: %w", err)
	}
	req.Header.Add("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("opening event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("unexpected event stream status code %d", resp.StatusCode)
	}

	go c.readEvents(resp.Body)

	select {
	case <-c.connected:
		return nil
	case <-c.closed:
		return errors.New("stream closed before endpoint event")
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	}
}

// readEvents parses the SSE stream and routes message frames to waiting
// callers. It owns resp.Body and runs until the stream ends.
func (c *Client) readEvents(body io.ReadCloser) {
	defer body.Close()
	defer c.Close()

	var event, data string
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			if event != "" {
				c.handleEvent(event, data)
			}
			event, data = "", ""
		}
	}
	c.Logger.Debugf("event stream ended: %v", scanner.Err())
}

func (c *Client) handleEvent(event, data string) {
	switch event {
	case "endpoint":
		c.messageURL = c.baseURL + data
		c.Logger.Debugf("got message endpoint: %s", c.messageURL)
		close(c.connected)
	case "message":
		var resp protocol.Response
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			c.Logger.Debugf("error unmarshaling message event: %s", err)
			return
		}
		c.pendingMut.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.pendingMut.Unlock()
		if !ok {
			c.Logger.Debugf("dropping response with unknown id %q", resp.ID)
			return
		}
		ch <- resp
	default:
		c.Logger.Debugf("ignoring unknown event type %q", event)
	}
}

// call posts one request frame and waits for its response frame on the
// event stream.
func (c *Client) call(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	req.ID = uuid.NewString()

	ch := make(chan protocol.Response, 1)
	c.pendingMut.Lock()
	c.pending[req.ID] = ch
	c.pendingMut.Unlock()
	defer func() {
		c.pendingMut.Lock()
		delete(c.pending, req.ID)
		c.pendingMut.Unlock()
	}()

	if err := c.post(ctx, req); err != nil {
		return protocol.Response{}, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.closed:
		return protocol.Response{}, errors.New("stream closed while waiting for response")
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
}

func (c *Client) post(ctx context.Context, req protocol.Request) error {
	if c.messageURL == "" {
		return errors.New("not connected")
	}
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request frame: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messageURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("posting frame: %w", err)
	}
	defer httpResp.Body.Close()

	switch httpResp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		return nil
	case http.StatusNotFound, http.StatusGone:
		return ErrSessionNotFound
	default:
		var body string
		rb, err := io.ReadAll(httpResp.Body)
		if err != nil {
			body = fmt.Errorf("error reading body: %w", err).Error()
		} else {
			body = string(rb)
		}
		return fmt.Errorf("unexpected status code %d posting frame: %s", httpResp.StatusCode, body)
	}
}

// Initialize performs the handshake and returns the server's capability
// ack, including its tool list.
func (c *Client) Initialize(ctx context.Context) (protocol.Response, error) {
	return c.call(ctx, protocol.Request{Type: protocol.RequestTypeInitialize})
}

// CallTool invokes the named tool and returns its string result. Error
// frames come back as errors; the session stays open either way.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	resp, err := c.call(ctx, protocol.Request{Tool: name, Arguments: args})
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("tool error: %s", resp.Error)
	}
	if resp.Result == nil {
		return "", errors.New("response frame carried neither result nor error")
	}
	return *resp.Result, nil
}

// MessageURL returns the message-post endpoint announced by the server,
// or "" before Connect completes.
func (c *Client) MessageURL() string {
	return c.messageURL
}

// Health fetches the server's health endpoint.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return HealthResponse{}, fmt.Errorf("unexpected health status code %d", resp.StatusCode)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return HealthResponse{}, fmt.Errorf("decoding health response: %w", err)
	}
	return health, nil
}

// WaitForServer polls the health endpoint until the server answers.
func (c *Client) WaitForServer(ctx context.Context) error {
	ticker := time.NewTicker(c.waitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := c.Health(ctx)
			if err == nil {
				c.Logger.Debug("health check succeeded, done waiting for server")
				return nil
			}
			c.Logger.Debugf("got health check error: %s", err)
		}
	}
}

// Close tears down the event stream. In-flight calls fail; the server
// forgets the session once the stream drops.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.streamCancel != nil {
			c.streamCancel()
		}
	})
}
