package dashboard

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sayonsom/workpal/internal/api"
	"github.com/sayonsom/workpal/internal/session"
)

// Handler serves the authenticated dashboard endpoints.
type Handler struct {
	svc      *Service
	sessions *session.Manager
}

// NewHandler creates the dashboard handler.
func NewHandler(svc *Service, sessions *session.Manager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// RegisterRoutes mounts the dashboard endpoints behind the session
// middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Require)

		r.Get("/api/agents", h.handleListAgents)
		r.Post("/api/agents", h.handleCreateAgent)
		r.Get("/api/agents/{agentID}", h.handleGetAgent)
		r.Patch("/api/agents/{agentID}", h.handlePatchAgent)
		r.Delete("/api/agents/{agentID}", h.handleDeleteAgent)
		r.Post("/api/agents/{agentID}/select", h.handleSelectAgent)

		r.Get("/api/agents/{agentID}/tasks", h.handleTasks)
		r.Get("/api/usage", h.handleUsage)

		r.Get("/api/agents/{agentID}/skills", h.handleListSkills)
		r.Post("/api/agents/{agentID}/skills", h.handleCreateSkill)
		r.Delete("/api/agents/{agentID}/skills/{skillID}", h.handleDeleteSkill)
		r.Post("/api/agents/{agentID}/skills/{skillID}/subskills", h.handleCreateSubSkill)
		r.Delete("/api/agents/{agentID}/skills/{skillID}/subskills/{subSkillID}", h.handleDeleteSubSkill)

		r.Get("/api/agents/{agentID}/samples", h.handleListSamples)
		r.Post("/api/agents/{agentID}/samples", h.handleCreateSample)
		r.Delete("/api/agents/{agentID}/samples/{sampleID}", h.handleDeleteSample)

		r.Get("/api/export", h.handleExport)
		r.Delete("/api/account", h.handleDeleteAccount)
	})
}

func (h *Handler) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.svc.Agents(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"items": agents})
}

func (h *Handler) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if !api.DecodeBody(w, r, &req) {
		return
	}
	if req.DisplayName == "" {
		api.Error(w, http.StatusBadRequest, "Display name is required.")
		return
	}
	agent, err := h.svc.CreateAgent(r.Context(), session.IDFromContext(r.Context()), req)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, agent)
}

func (h *Handler) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.svc.Agent(r.Context(), session.IDFromContext(r.Context()), chi.URLParam(r, "agentID"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, agent)
}

func (h *Handler) handlePatchAgent(w http.ResponseWriter, r *http.Request) {
	var req PatchAgentRequest
	if !api.DecodeBody(w, r, &req) {
		return
	}
	agent, err := h.svc.PatchAgent(r.Context(), session.IDFromContext(r.Context()), chi.URLParam(r, "agentID"), req)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, agent)
}

func (h *Handler) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAgent(r.Context(), session.IDFromContext(r.Context()), chi.URLParam(r, "agentID")); err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleSelectAgent(w http.ResponseWriter, r *http.Request) {
	h.svc.SelectAgent(session.IDFromContext(r.Context()), chi.URLParam(r, "agentID"))
	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks, cursor, err := h.svc.Tasks(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "agentID"), r.URL.Query().Get("cursor"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"items": tasks, "cursor": cursor})
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.svc.Usage(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, usage)
}

func (h *Handler) handleListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.svc.Skills(r.Context(), session.IDFromContext(r.Context()), chi.URLParam(r, "agentID"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"items": skills})
}

type skillRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Instruction string `json:"instruction,omitempty"`
}

func (h *Handler) handleCreateSkill(w http.ResponseWriter, r *http.Request) {
	var req skillRequest
	if !api.DecodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "Skill name is required.")
		return
	}
	skill, err := h.svc.CreateSkill(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "agentID"), req.Name, req.Description)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, skill)
}

func (h *Handler) handleDeleteSkill(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteSkill(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "agentID"), chi.URLParam(r, "skillID"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleCreateSubSkill(w http.ResponseWriter, r *http.Request) {
	var req skillRequest
	if !api.DecodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "Sub-skill name is required.")
		return
	}
	sub, err := h.svc.CreateSubSkill(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "agentID"), chi.URLParam(r, "skillID"), req.Name, req.Instruction)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleDeleteSubSkill(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteSubSkill(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "agentID"), chi.URLParam(r, "skillID"), chi.URLParam(r, "subSkillID"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleListSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := h.svc.Samples(r.Context(), session.IDFromContext(r.Context()), chi.URLParam(r, "agentID"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{"items": samples})
}

type sampleRequest struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func (h *Handler) handleCreateSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if !api.DecodeBody(w, r, &req) {
		return
	}
	if req.Input == "" || req.Output == "" {
		api.Error(w, http.StatusBadRequest, "Sample input and output are required.")
		return
	}
	sample, err := h.svc.CreateSample(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "agentID"), req.Input, req.Output)
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, sample)
}

func (h *Handler) handleDeleteSample(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteSample(r.Context(), session.IDFromContext(r.Context()),
		chi.URLParam(r, "agentID"), chi.URLParam(r, "sampleID"))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.svc.Export(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="workpal-export.zip"`)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("Export stream interrupted", "error", err)
	}
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), session.IDFromContext(r.Context())); err != nil {
		api.WriteGatewayError(w, err)
		return
	}
	if err := h.sessions.Clear(r.Context(), w, r); err != nil {
		slog.Warn("Failed to clear session after account deletion", "error", err)
	}
	api.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
