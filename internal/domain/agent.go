package domain

import (
	"time"
)

// AgentStatus is the lifecycle state of an assistant.
type AgentStatus string

const (
	AgentActive  AgentStatus = "active"
	AgentPaused  AgentStatus = "paused"
	AgentDeleted AgentStatus = "deleted"
)

// Agent is a user-owned assistant identity with its own email address.
type Agent struct {
	AgentID        string      `json:"agent_id"`
	AgentEmail     string      `json:"agent_email"`
	DisplayName    string      `json:"display_name"`
	Status         AgentStatus `json:"status"`
	PhoneNumber    string      `json:"phone_number,omitempty"`
	VoiceEnabled   bool        `json:"voice_enabled"`
	DomainTags     []string    `json:"domain_tags,omitempty"`
	ProfileSummary string      `json:"profile_summary,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// IsUsable reports whether the agent can currently process tasks.
func (a *Agent) IsUsable() bool {
	return a.Status == AgentActive
}
