package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/AgniRoy1234/sse-server/server/protocol"
)

// inboundBuffer bounds how many posted frames a session can hold before
// POSTs start blocking on the loop.
const inboundBuffer = 32

// session is one client's duplex channel: an SSE stream out, a
// message-post endpoint in. The protocol loop is the only reader of
// inbound; concurrent POST handlers are the writers.
type session struct {
	id      string
	inbound chan protocol.Request

	closeOnce sync.Once
	done      chan struct{}
}

func newSession() *session {
	return &session{
		id:      uuid.NewString(),
		inbound: make(chan protocol.Request, inboundBuffer),
		done:    make(chan struct{}),
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// sessionSet tracks open sessions by id.
type sessionSet struct {
	mut      sync.Mutex
	sessions map[string]*session
}

func newSessionSet() *sessionSet {
	return &sessionSet{sessions: map[string]*session{}}
}

func (s *sessionSet) add(sess *session) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.sessions[sess.id] = sess
}

func (s *sessionSet) remove(id string) {
	s.mut.Lock()
	defer s.mut.Unlock()
	delete(s.sessions, id)
}

func (s *sessionSet) get(id string) (*session, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionSet) len() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return len(s.sessions)
}

// sseWriter encodes response frames as server-sent events. The HTTP
// transport is the sole reader; the protocol loop is the sole writer.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (w *sseWriter) writeEvent(event string, data []byte) error {
	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

func (w *sseWriter) WriteResponse(ctx context.Context, resp protocol.Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response frame: %w", err)
	}
	return w.writeEvent("message", b)
}

// handleSSE serves GET /sse: it allocates a session, announces the
// companion message endpoint as the first event, and then runs the
// protocol loop until the client disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sess := newSession()
	s.sessions.add(sess)
	defer func() {
		s.sessions.remove(sess.id)
		sess.close()
	}()

	sink := &sseWriter{w: w, flusher: flusher}

	s.logger.Infof("session %s connected from %s", sess.id, r.RemoteAddr)
	if err := sink.writeEvent("endpoint", []byte(fmt.Sprintf("/messages/?session_id=%s", sess.id))); err != nil {
		s.logger.Debugf("error writing endpoint event: %s", err)
		return
	}

	loop := &protocol.Loop{
		Log:      s.logger.Named("protocol").With("session", sess.id),
		Registry: s.registry,
		Info:     s.info,
	}
	err := loop.Run(r.Context(), sess.inbound, sink)
	s.logger.Infow("session closed", "Session", sess.id, "Error", err)
}

// handleMessages serves POST /messages/?session_id=<id>: it routes one
// protocol frame into the named session's inbound queue. The frame's
// processing result arrives later on the session's event stream; the POST
// itself only acknowledges receipt.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	sess, ok := s.sessions.get(sessionID)
	if !ok {
		http.Error(w, "no such session", http.StatusNotFound)
		return
	}

	var req protocol.Request
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case sess.inbound <- req:
		w.WriteHeader(http.StatusAccepted)
	case <-sess.done:
		// The session closed while we were trying to enqueue.
		http.Error(w, "session closed", http.StatusGone)
	case <-r.Context().Done():
		// The poster went away; there is no one left to answer.
	}
}
