package protocol

import (
	"context"

	"go.uber.org/zap"

	"github.com/AgniRoy1234/sse-server/tools"
)

// Sink is the outbound half of a session's duplex channel. The loop is
// the only writer for a given session.
type Sink interface {
	WriteResponse(ctx context.Context, resp Response) error
}

type state int

// The closed state is implicit: the loop returning is the terminal
// transition, and the transport releases the session afterwards.
const (
	stateConnecting state = iota
	stateInitialized
	stateServing
)

// Loop runs the protocol state machine for one session. Requests are
// read from a channel fed by the transport and dispatched one at a time,
// so responses go out in dispatch order.
type Loop struct {
	Log      *zap.SugaredLogger
	Registry *tools.Registry
	Info     ServerInfo
}

// Run serves the session until ctx is done or the inbound channel is
// closed. Tool-level failures become error frames; only sink write
// failures (a dead transport) end the loop early.
func (l *Loop) Run(ctx context.Context, inbound <-chan Request, sink Sink) error {
	s := stateConnecting

	for {
		var req Request
		select {
		case <-ctx.Done():
			l.Log.Debug("session context done, exiting loop")
			return ctx.Err()
		case r, ok := <-inbound:
			if !ok {
				l.Log.Debug("inbound channel closed, exiting loop")
				return nil
			}
			req = r
		}

		var resp Response
		switch {
		case req.Type == RequestTypeInitialize:
			resp = Response{
				ID:     req.ID,
				Server: &l.Info,
				Tools:  l.Registry.List(),
			}
			s = stateInitialized
		case s == stateConnecting:
			l.Log.Warnf("got %q frame before initialization", req.Tool)
			resp = Response{ID: req.ID, Error: "session not initialized"}
		default:
			resp = l.dispatch(ctx, req)
		}

		if err := sink.WriteResponse(ctx, resp); err != nil {
			l.Log.Debugf("error writing response frame: %s", err)
			return err
		}
		if s == stateInitialized {
			s = stateServing
		}
	}
}

func (l *Loop) dispatch(ctx context.Context, req Request) Response {
	result, err := l.Registry.Invoke(ctx, req.Tool, req.Arguments)
	if err != nil {
		l.Log.Debugf("tool %q failed: %s", req.Tool, err)
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: &result}
}
