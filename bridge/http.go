package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/idgen"
)

// maxMessageBytes bounds one POST /messages body.
const maxMessageBytes = 4 << 20

// RegisterHTTP mounts the bridge endpoints on r:
//
//	POST /messages  one inbound message or an array of them, applied in order
//	GET  /health    200 while the loop runs, 503 once stopped
//	GET  /stats     counters as JSON
//	GET  /document  the live tree as HTML, or markdown with ?format=markdown
func (b *Bridge) RegisterHTTP(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(traceID(b.logger, idgen.Prefixed("req_", idgen.Default)))
		r.With(maxBody(maxMessageBytes)).Post("/messages", b.handleMessages)
		r.Get("/health", b.handleHealth)
		r.Get("/stats", b.handleStats)
		r.Get("/document", b.handleDocument)
	})
}

// Handler returns a chi router serving the bridge endpoints.
func (b *Bridge) Handler() http.Handler {
	r := chi.NewRouter()
	b.RegisterHTTP(r)
	return r
}

func (b *Bridge) handleMessages(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r.Context())
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	msgs, err := wire.DecodeAll(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for i, msg := range msgs {
		if err := b.Deliver(r.Context(), msg); err != nil {
			logger.Warn("bridge: deliver failed", "index", i, "type", msg.Type, "error", err)
			writeJSON(w, deliverStatus(err), map[string]any{
				"error":     err.Error(),
				"delivered": i,
			})
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"delivered": len(msgs)})
}

func deliverStatus(err error) int {
	switch {
	case errors.Is(err, ErrStopped), errors.Is(err, ErrNotStarted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (b *Bridge) handleHealth(w http.ResponseWriter, _ *http.Request) {
	select {
	case <-b.done:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopped"})
		return
	default:
	}
	select {
	case <-b.started:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": b.session})
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
	}
}

func (b *Bridge) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := b.Stats(r.Context())
	if err != nil {
		writeError(w, deliverStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (b *Bridge) handleDocument(w http.ResponseWriter, r *http.Request) {
	f := Format(r.URL.Query().Get("format"))
	data, err := b.Snapshot(r.Context(), f)
	switch {
	case errors.Is(err, ErrStopped), errors.Is(err, ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if f == FormatMarkdown {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
