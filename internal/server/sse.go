package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hyperjump/torikomi/internal/models"
)

// sseEvent is one server-sent event on the progress stream.
type sseEvent struct {
	name string
	data interface{}
}

// sseSubscriber forwards tracker notifications into a channel drained by the
// streaming handler. Sends never block: when the client is slow the event is
// dropped, matching the tracker's fire-and-forget delivery.
type sseSubscriber struct {
	events chan sseEvent
}

func newSSESubscriber() *sseSubscriber {
	return &sseSubscriber{events: make(chan sseEvent, 16)}
}

func (s *sseSubscriber) send(e sseEvent) {
	select {
	case s.events <- e:
	default:
	}
}

func (s *sseSubscriber) ReceiveProgress(p models.IngestionProgress) {
	s.send(sseEvent{name: "progress", data: p})
}

func (s *sseSubscriber) ReceiveCompleted(p models.IngestionProgress) {
	s.send(sseEvent{name: "completed", data: p})
}

func (s *sseSubscriber) ReceiveMessage(msg string) {
	s.send(sseEvent{name: "message", data: map[string]string{"message": msg}})
}

// handleProgressStream streams ingestion progress as server-sent events until
// the client disconnects. The current record is sent first so late joiners
// see the run state immediately.
func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := newSSESubscriber()
	s.tracker.Subscribe(sub)
	defer s.tracker.Unsubscribe(sub)

	writeEvent(w, sseEvent{name: "progress", data: s.tracker.GetProgress()})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-sub.events:
			writeEvent(w, e)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e sseEvent) {
	data, err := json.Marshal(e.data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, data)
}
