package model

// QuestionType distinguishes the two candidate pools. Each type carries its
// own weight formula and its own intensity budget.
type QuestionType string

const (
	QuestionTypeRisk       QuestionType = "risk"
	QuestionTypeCompliance QuestionType = "compliance"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeRisk, QuestionTypeCompliance:
		return true
	}
	return false
}

// Priority is the generator-assigned urgency of a candidate question.
// It is a closed set: unknown values are rejected at intake rather than
// silently failing membership checks downstream.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// priorityRank orders priorities for ranking tie-breaks. Higher rank wins.
var priorityRank = map[Priority]int{
	PriorityCritical: 3,
	PriorityHigh:     2,
	PriorityMedium:   1,
	PriorityLow:      0,
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank returns the numeric rank of p (critical highest). Unknown priorities
// rank below low.
func (p Priority) Rank() int {
	rank, ok := priorityRank[p]
	if !ok {
		return -1
	}
	return rank
}

// Candidate is an unscored question proposal from the external generator.
// The engine never mutates a Candidate; scoring produces a separate record.
type Candidate struct {
	ID           string       `json:"id" yaml:"id"`
	QuestionType QuestionType `json:"question_type" yaml:"question_type"`
	Priority     Priority     `json:"priority" yaml:"priority"`
	BaseWeight   float64      `json:"base_weight" yaml:"base_weight"`
	Label        string       `json:"label" yaml:"label"`
	Description  string       `json:"description" yaml:"description"`
}

// QueryText returns the text used to search the incident corpus for
// supporting evidence.
func (c Candidate) QueryText() string {
	if c.Description == "" {
		return c.Label
	}
	return c.Label + ". " + c.Description
}

// ScoredQuestion is the engine's output record for one surviving candidate.
// Created once per generation run and never updated afterwards.
type ScoredQuestion struct {
	Candidate

	EvidenceWeight      float64    `json:"evidence_weight"`
	IndustryWeight      float64    `json:"industry_weight"`
	FinalWeight         float64    `json:"final_weight"`
	IncidentCount       int        `json:"supporting_incident_count"`
	SupportingIncidents []Incident `json:"supporting_incidents,omitempty"`

	// Degraded marks a candidate whose evidence retrieval failed and which
	// proceeded with zero evidence.
	Degraded bool `json:"degraded,omitempty"`
}

// GenerationResult holds the two independently ranked and capped pools.
type GenerationResult struct {
	RunID               string           `json:"run_id"`
	Intensity           string           `json:"intensity"`
	RiskQuestions       []ScoredQuestion `json:"risk_questions"`
	ComplianceQuestions []ScoredQuestion `json:"compliance_questions"`
}
