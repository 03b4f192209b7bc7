// Package dashboard implements the end-user operations behind the
// customer dashboard: agents, tasks, usage, skills, samples, and account
// export/deletion. Every operation is a thin proxy to the remote backend.
package dashboard

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sayonsom/workpal/internal/domain"
)

// Caller abstracts the gateway client for tests.
type Caller interface {
	Call(ctx context.Context, sessionID, method, path string, body, out any) error
	Download(ctx context.Context, sessionID, path string) (io.ReadCloser, string, error)
}

// Service exposes the user-facing backend operations.
type Service struct {
	gw Caller

	// selected tracks each session's currently selected agent so a
	// deleted agent disappears from the selection immediately.
	mu       sync.Mutex
	selected map[string]string
}

// NewService creates a dashboard service over the gateway client.
func NewService(gw Caller) *Service {
	return &Service{gw: gw, selected: make(map[string]string)}
}

type listResponse[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor,omitempty"`
}

// Agents lists all agents owned by the session's user.
func (s *Service) Agents(ctx context.Context, sessionID string) ([]domain.Agent, error) {
	var out listResponse[domain.Agent]
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, "/agents", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Agent fetches one agent.
func (s *Service) Agent(ctx context.Context, sessionID, agentID string) (*domain.Agent, error) {
	var agent domain.Agent
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, "/agents/"+url.PathEscape(agentID), nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreateAgentRequest is the creation payload.
type CreateAgentRequest struct {
	DisplayName  string   `json:"display_name"`
	VoiceEnabled bool     `json:"voice_enabled,omitempty"`
	DomainTags   []string `json:"domain_tags,omitempty"`
}

// CreateAgent provisions a new assistant identity.
func (s *Service) CreateAgent(ctx context.Context, sessionID string, req CreateAgentRequest) (*domain.Agent, error) {
	var agent domain.Agent
	if err := s.gw.Call(ctx, sessionID, http.MethodPost, "/agents", req, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// PatchAgentRequest mutates display name and/or status. Nil fields are
// left untouched by the backend.
type PatchAgentRequest struct {
	DisplayName *string             `json:"display_name,omitempty"`
	Status      *domain.AgentStatus `json:"status,omitempty"`
}

// PatchAgent applies a partial update.
func (s *Service) PatchAgent(ctx context.Context, sessionID, agentID string, req PatchAgentRequest) (*domain.Agent, error) {
	var agent domain.Agent
	if err := s.gw.Call(ctx, sessionID, http.MethodPatch, "/agents/"+url.PathEscape(agentID), req, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// DeleteAgent deletes an agent and drops it from the session's selection.
func (s *Service) DeleteAgent(ctx context.Context, sessionID, agentID string) error {
	if err := s.gw.Call(ctx, sessionID, http.MethodDelete, "/agents/"+url.PathEscape(agentID), nil, nil); err != nil {
		return err
	}
	s.mu.Lock()
	if s.selected[sessionID] == agentID {
		delete(s.selected, sessionID)
	}
	s.mu.Unlock()
	return nil
}

// SelectAgent records the session's active agent.
func (s *Service) SelectAgent(sessionID, agentID string) {
	s.mu.Lock()
	s.selected[sessionID] = agentID
	s.mu.Unlock()
}

// SelectedAgent returns the session's active agent ID, if any.
func (s *Service) SelectedAgent(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.selected[sessionID]
	return id, ok
}

// Tasks lists one page of an agent's task history.
func (s *Service) Tasks(ctx context.Context, sessionID, agentID, cursor string) ([]domain.Task, string, error) {
	path := "/agents/" + url.PathEscape(agentID) + "/tasks"
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}
	var out listResponse[domain.Task]
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, path, nil, &out); err != nil {
		return nil, "", err
	}
	return out.Items, out.Cursor, nil
}

// Usage fetches account-level usage counters.
func (s *Service) Usage(ctx context.Context, sessionID string) (*domain.Usage, error) {
	var usage domain.Usage
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, "/usage", nil, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// Skills lists an agent's skills.
func (s *Service) Skills(ctx context.Context, sessionID, agentID string) ([]domain.Skill, error) {
	var out listResponse[domain.Skill]
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, "/agents/"+url.PathEscape(agentID)+"/skills", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateSkill adds a skill to an agent.
func (s *Service) CreateSkill(ctx context.Context, sessionID, agentID, name, description string) (*domain.Skill, error) {
	body := map[string]string{"name": name, "description": description}
	var skill domain.Skill
	if err := s.gw.Call(ctx, sessionID, http.MethodPost, "/agents/"+url.PathEscape(agentID)+"/skills", body, &skill); err != nil {
		return nil, err
	}
	return &skill, nil
}

// DeleteSkill removes a skill; the backend cascades its sub-skills.
func (s *Service) DeleteSkill(ctx context.Context, sessionID, agentID, skillID string) error {
	path := "/agents/" + url.PathEscape(agentID) + "/skills/" + url.PathEscape(skillID)
	return s.gw.Call(ctx, sessionID, http.MethodDelete, path, nil, nil)
}

// CreateSubSkill adds a refinement under a parent skill.
func (s *Service) CreateSubSkill(ctx context.Context, sessionID, agentID, skillID, name, instruction string) (*domain.SubSkill, error) {
	body := map[string]string{"name": name, "instruction": instruction}
	path := "/agents/" + url.PathEscape(agentID) + "/skills/" + url.PathEscape(skillID) + "/subskills"
	var sub domain.SubSkill
	if err := s.gw.Call(ctx, sessionID, http.MethodPost, path, body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubSkill removes one sub-skill.
func (s *Service) DeleteSubSkill(ctx context.Context, sessionID, agentID, skillID, subSkillID string) error {
	path := "/agents/" + url.PathEscape(agentID) + "/skills/" + url.PathEscape(skillID) + "/subskills/" + url.PathEscape(subSkillID)
	return s.gw.Call(ctx, sessionID, http.MethodDelete, path, nil, nil)
}

// Samples lists an agent's tone samples.
func (s *Service) Samples(ctx context.Context, sessionID, agentID string) ([]domain.Sample, error) {
	var out listResponse[domain.Sample]
	if err := s.gw.Call(ctx, sessionID, http.MethodGet, "/agents/"+url.PathEscape(agentID)+"/samples", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateSample adds a sample exchange.
func (s *Service) CreateSample(ctx context.Context, sessionID, agentID, input, output string) (*domain.Sample, error) {
	body := map[string]string{"input": input, "output": output}
	var sample domain.Sample
	if err := s.gw.Call(ctx, sessionID, http.MethodPost, "/agents/"+url.PathEscape(agentID)+"/samples", body, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// DeleteSample removes one sample.
func (s *Service) DeleteSample(ctx context.Context, sessionID, agentID, sampleID string) error {
	path := "/agents/" + url.PathEscape(agentID) + "/samples/" + url.PathEscape(sampleID)
	return s.gw.Call(ctx, sessionID, http.MethodDelete, path, nil, nil)
}

// Export streams the user's account export archive.
func (s *Service) Export(ctx context.Context, sessionID string) (io.ReadCloser, string, error) {
	return s.gw.Download(ctx, sessionID, "/export")
}

// DeleteAccount destroys the account server-side. The caller is expected
// to clear the session afterwards.
func (s *Service) DeleteAccount(ctx context.Context, sessionID string) error {
	if err := s.gw.Call(ctx, sessionID, http.MethodDelete, "/account", nil, nil); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.selected, sessionID)
	s.mu.Unlock()
	return nil
}
