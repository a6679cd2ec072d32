package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/orthoview/internal/chat"
)

// progressBuffer bounds queued progress events. A run emits eight, so a
// full buffer means the client stopped reading.
const progressBuffer = 16

type streamOutcome struct {
	results chat.ViewResultSet
	err     error
}

// handleStream runs the pipeline and forwards progress as Server-Sent
// Events, ending with exactly one "result" or "error" event.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	upload, ok := readUpload(w, r)
	if !ok {
		return
	}

	events := make(chan string, progressBuffer)
	sink := chat.ProgressFunc(func(message string) {
		select {
		case events <- message:
		default:
			log.Debug().Str("message", message).Msg("Progress event dropped, stream buffer full")
		}
	})

	done := make(chan streamOutcome, 1)
	go func() {
		results, err := h.pipeline.GenerateAllViews(r.Context(), upload.Blob, sink)
		done <- streamOutcome{results: results, err: err}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case msg := <-events:
			writeEvent(w, "progress", map[string]string{"message": msg})
			flusher.Flush()

		case out := <-done:
			// The sink is only called before the pipeline returns, so
			// whatever is queued now is all there is.
			for drained := false; !drained; {
				select {
				case msg := <-events:
					writeEvent(w, "progress", map[string]string{"message": msg})
				default:
					drained = true
				}
			}

			if out.err != nil {
				log.Warn().Err(out.err).Msg("Pipeline aborted during stream")
				writeEvent(w, "error", map[string]string{"error": chat.UserMessage(out.err)})
			} else {
				writeEvent(w, "result", newViewsResponse(out.results))
			}
			flusher.Flush()
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to encode SSE payload")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
