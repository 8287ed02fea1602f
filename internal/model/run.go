package model

import (
	"encoding/json"
	"time"
)

// RunStatus represents the current state of a visibility run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusMasking   RunStatus = "masking"
	RunStatusPlanning  RunStatus = "planning"
	RunStatusAnswering RunStatus = "answering"
	RunStatusScoring   RunStatus = "scoring"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether the run has finished.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// RunRequest describes the story a run was started for.
type RunRequest struct {
	StoryID      string   `json:"story_id"`
	ProviderName string   `json:"provider_name"`
	Aliases      []string `json:"aliases,omitempty"`
	Models       []string `json:"models,omitempty"`
	Mode         Mode     `json:"mode"`
	SourceURL    string   `json:"source_url,omitempty"`
	ClientName   string   `json:"client_name,omitempty"`
}

// Run is a persisted record of one pipeline execution.
type Run struct {
	ID        string     `json:"id"`
	Request   RunRequest `json:"request"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult summarizes a completed run. Payload holds the serialized result.
type RunResult struct {
	Coverage    float64           `json:"coverage"`
	Confidence  float64           `json:"confidence"`
	Summary     VisibilitySummary `json:"summary"`
	TotalTokens int               `json:"total_tokens"`
	TotalCost   float64           `json:"total_cost"`
	Phases      []PhaseResult     `json:"phases,omitempty"`
	Payload     json.RawMessage   `json:"payload,omitempty"`
}

// RunPhase is a persisted phase of a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name       string         `json:"name"`
	Status     PhaseStatus    `json:"status"`
	Duration   int64          `json:"duration_ms"`
	TokenUsage TokenUsage     `json:"token_usage"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// TokenUsage tracks LLM token consumption and cost.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Cost += other.Cost
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
