package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sayonsom/workpal/internal/transcript"
)

// TranscriptFetcher retrieves a video transcript.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// TranscriptHandler serves the YouTube transcript endpoint used by the
// sample-import flow.
type TranscriptHandler struct {
	fetcher TranscriptFetcher
}

// NewTranscriptHandler creates the transcript handler.
func NewTranscriptHandler(fetcher TranscriptFetcher) *TranscriptHandler {
	return &TranscriptHandler{fetcher: fetcher}
}

// RegisterRoutes mounts the transcript endpoint.
func (h *TranscriptHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/youtube-transcript", h.handleGet)
}

func (h *TranscriptHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	if !transcript.ValidVideoID(videoID) {
		Error(w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	text, err := h.fetcher.Fetch(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, transcript.ErrNoTranscript) {
			Error(w, http.StatusNotFound, "No transcript available for this video")
			return
		}
		slog.Error("Transcript fetch failed", "video_id", videoID, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to fetch transcript")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"videoId": videoID, "transcript": text})
}
