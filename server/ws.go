package server

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/AgniRoy1234/sse-server/server/protocol"
)

// wsSink writes response frames as JSON WebSocket messages.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) WriteResponse(ctx context.Context, resp protocol.Response) error {
	return wsjson.Write(ctx, s.conn, resp)
}

// handleWS serves GET /ws: a single full-duplex connection carrying the
// same protocol frames as the SSE transport, with no session-id
// correlation needed. The connection scope is the session scope.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		s.logger.Debugf("error accepting WebSocket conn: %s", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.logger.Debug("accepted WebSocket conn")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan protocol.Request)
	go func() {
		defer cancel()
		for {
			var req protocol.Request
			err := wsjson.Read(ctx, wsConn, &req)
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				s.logger.Debug("got normal closure from client, wrapping up")
				return
			}
			if err != nil {
				s.logger.Debugf("frame reader got error: %s", err)
				return
			}
			select {
			case inbound <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	loop := &protocol.Loop{
		Log:      s.logger.Named("protocol"),
		Registry: s.registry,
		Info:     s.info,
	}
	err = loop.Run(ctx, inbound, &wsSink{conn: wsConn})
	s.logger.Debugw("WebSocket session closed", "Error", err)
	wsConn.Close(websocket.StatusNormalClosure, "")
}
