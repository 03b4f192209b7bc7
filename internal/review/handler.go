package review

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sayonsom/workpal/internal/api"
	"github.com/sayonsom/workpal/internal/domain"
	"github.com/sayonsom/workpal/internal/session"
)

// maxAttachmentUpload bounds replacement attachment size.
const maxAttachmentUpload = 25 << 20

// Handler serves the admin review console endpoints.
type Handler struct {
	svc      *Service
	sessions *session.Manager
}

// NewHandler creates the review handler.
func NewHandler(svc *Service, sessions *session.Manager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// RegisterRoutes mounts the admin endpoints behind the session middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Require)

		r.Get("/api/admin/dashboard", h.handleSummary)
		r.Get("/api/admin/reviews", h.handleList)
		r.Get("/api/admin/reviews/{reviewID}", h.handleGet)
		r.Post("/api/admin/reviews/{reviewID}/approve", h.handleApprove)
		r.Post("/api/admin/reviews/{reviewID}/reject", h.handleReject)
		r.Get("/api/admin/reviews/{reviewID}/attachments/{index}/download", h.handleAttachmentURL)
		r.Post("/api/admin/reviews/{reviewID}/attachments/{index}", h.handleReplaceAttachment)
		r.Get("/api/admin/audit", h.handleAudit)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, sum)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	page, err := h.svc.List(r.Context(), session.IDFromContext(r.Context()),
		domain.ReviewStatus(q.Get("status")), pageSize, q.Get("cursor"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Get(r.Context(), session.IDFromContext(r.Context()), chi.URLParam(r, "reviewID"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, detail)
}

type approveBody struct {
	EditedOutput *string `json:"edited_output,omitempty"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())
	reviewID := chi.URLParam(r, "reviewID")

	var body approveBody
	if r.ContentLength > 0 {
		if !api.DecodeBody(w, r, &body) {
			return
		}
	}

	// An edit that matches the original output is not an edit: approve
	// the original verbatim with no body sent upstream.
	edited := body.EditedOutput
	if edited != nil {
		detail, err := h.svc.Get(r.Context(), sessionID, reviewID)
		if err != nil {
			api.WriteGatewayError(w, err)
			return
		}
		if *edited == detail.Record.FullOutput {
			edited = nil
		}
	}

	if err := h.svc.Approve(r.Context(), sessionID, reviewID, edited); err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	h.respondWithRefresh(w, r, sessionID, reviewID)
}

type rejectBody struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())
	reviewID := chi.URLParam(r, "reviewID")

	var body rejectBody
	if r.ContentLength > 0 {
		if !api.DecodeBody(w, r, &body) {
			return
		}
	}

	if err := h.svc.Reject(r.Context(), sessionID, reviewID, body.Reason); err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	h.respondWithRefresh(w, r, sessionID, reviewID)
}

// respondWithRefresh returns the freshly re-fetched record and summary
// after a mutation, so the console updates the item and pending count in
// one round trip.
func (h *Handler) respondWithRefresh(w http.ResponseWriter, r *http.Request, sessionID, reviewID string) {
	detail, err := h.svc.Get(r.Context(), sessionID, reviewID)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	sum, err := h.svc.Summary(r.Context(), sessionID)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"record": detail, "summary": sum})
}

func (h *Handler) handleAttachmentURL(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		api.Error(w, http.StatusBadRequest, "Invalid attachment index.")
		return
	}

	link, err := h.svc.AttachmentURL(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "reviewID"), index)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, link)
}

func (h *Handler) handleReplaceAttachment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		api.Error(w, http.StatusBadRequest, "Invalid attachment index.")
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentUpload); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid upload.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "A replacement file is required.")
		return
	}
	defer file.Close()

	detail, err := h.svc.ReplaceAttachment(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "reviewID"), index, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	items, cursor, err := h.svc.Audit(r.Context(), session.IDFromContext(r.Context()), r.URL.Query().Get("cursor"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"items": items, "cursor": cursor})
}
