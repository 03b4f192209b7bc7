package domain

import (
	"time"
)

// TaskStatus is the processing state of a unit of agent work.
type TaskStatus string

const (
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is a unit of work processed by an agent. Read-only from this
// application's perspective.
type Task struct {
	TaskID         string     `json:"task_id"`
	Subject        string     `json:"subject"`
	Status         TaskStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	InputChars     int        `json:"input_chars"`
	OutputChars    int        `json:"output_chars"`
	HasAttachments bool       `json:"has_attachments"`
	SentAttachment bool       `json:"sent_attachment"`
}

// Usage summarizes account-level consumption for the dashboard.
type Usage struct {
	TasksThisMonth int `json:"tasks_this_month"`
	TasksTotal     int `json:"tasks_total"`
	InputChars     int `json:"input_chars"`
	OutputChars    int `json:"output_chars"`
	AgentCount     int `json:"agent_count"`
}
