package domain

import (
	"time"
)

// Skill is a user-configured personalization unit attached to an agent.
type Skill struct {
	SkillID     string    `json:"skill_id"`
	AgentID     string    `json:"agent_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubSkill refines one parent skill. The only cross-entity invariant is
// the parent_skill_id linkage.
type SubSkill struct {
	SubSkillID    string    `json:"sub_skill_id"`
	ParentSkillID string    `json:"parent_skill_id"`
	Name          string    `json:"name"`
	Instruction   string    `json:"instruction,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sample is an example exchange the user supplies to steer reply tone.
type Sample struct {
	SampleID  string    `json:"sample_id"`
	AgentID   string    `json:"agent_id"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}
