package domain

import (
	"encoding/json"
)

// ReviewStatus is the workflow state of a review record.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Complexity classifies how hard the AI pipeline judged a task.
type Complexity string

const (
	ComplexityLow    Complexity = "LOW"
	ComplexityMedium Complexity = "MEDIUM"
	ComplexityHigh   Complexity = "HIGH"
)

// AttachmentMeta describes one attachment slot on a review, by position.
type AttachmentMeta struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	StorageKey  string `json:"storage_key"`
}

// ReviewRecord is one AI-generated email reply awaiting human approval.
// Records are created and transitioned server-side; this application only
// reads them and requests transitions.
type ReviewRecord struct {
	ReviewID    string           `json:"review_id"`
	TaskID      string           `json:"task_id"`
	AgentID     string           `json:"agent_id"`
	UserID      string           `json:"user_id"`
	Subject     string           `json:"subject"`
	FullInput   string           `json:"full_input"`
	FullOutput  string           `json:"full_output"`
	Attachments []AttachmentMeta `json:"attachment_metadata,omitempty"`
	Status      ReviewStatus     `json:"status"`
	ReviewedBy  string           `json:"reviewed_by,omitempty"`
	ReviewedAt  string           `json:"reviewed_at,omitempty"`
	RejectReason string          `json:"reject_reason,omitempty"`
	Complexity  Complexity       `json:"complexity,omitempty"`

	// PipelineTrace is serialized diagnostic JSON whose structure is owned
	// by the backend. Parse it defensively; a parse failure means "no trace".
	PipelineTrace json.RawMessage `json:"pipeline_trace,omitempty"`
}

// CanTransitionTo reports whether a status change is one this application
// is allowed to request: pending → approved or pending → rejected.
func (r *ReviewRecord) CanTransitionTo(next ReviewStatus) bool {
	if r.Status != ReviewPending {
		return false
	}
	return next == ReviewApproved || next == ReviewRejected
}

// ParseTrace attempts to decode the pipeline trace. The backend sends it
// either as an inline object or as a JSON-encoded string; both are
// accepted. A nil map with ok=false means the trace is absent or
// malformed; callers must not treat that as an error.
func (r *ReviewRecord) ParseTrace() (map[string]any, bool) {
	if len(r.PipelineTrace) == 0 {
		return nil, false
	}
	var trace map[string]any
	if err := json.Unmarshal(r.PipelineTrace, &trace); err == nil {
		return trace, true
	}
	var wrapped string
	if err := json.Unmarshal(r.PipelineTrace, &wrapped); err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(wrapped), &trace); err != nil {
		return nil, false
	}
	return trace, true
}
