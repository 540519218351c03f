package models

import (
	"time"

	"github.com/google/uuid"
)

// OverallStatus is the aggregate outcome of a validation run.
type OverallStatus string

const (
	StatusValid   OverallStatus = "VALID"
	StatusWarning OverallStatus = "WARNING"
	StatusInvalid OverallStatus = "INVALID"
)

// MatchStatus compares the doctor's category with the recommended one.
type MatchStatus string

const (
	MatchStatusMatch    MatchStatus = "MATCH"
	MatchStatusMismatch MatchStatus = "MISMATCH"
	// MatchStatusPartialMismatch is reserved for borderline subpoints with
	// several internal scenarios. The trigger condition is not codified in
	// the regulation material, so the pipeline declares but never produces it.
	MatchStatusPartialMismatch MatchStatus = "PARTIAL_MISMATCH"
	MatchStatusReviewRequired  MatchStatus = "REVIEW_REQUIRED"
)

// StageStatus is the per-stage completion status.
type StageStatus string

const (
	StageSuccess StageStatus = "SUCCESS"
	StageWarning StageStatus = "WARNING"
	StageError   StageStatus = "ERROR"
	StageSkipped StageStatus = "SKIPPED"
)

// StageResult records the outcome of one pipeline stage. Three are produced
// per run, one per stage.
type StageResult struct {
	Number          int
	Name            string
	Passed          bool
	Status          StageStatus
	Details         map[string]any
	DurationSeconds float64
	ErrorMessage    string
}

// Verdict is the aggregate output of one validation run: the merged result
// of all three stages plus the comparison against the doctor's conclusion.
type Verdict struct {
	OverallStatus OverallStatus
	RiskLevel     Severity

	Contradictions      []*Contradiction
	StageContradictions StageResult
	StageClinical       StageResult
	StageCategory       StageResult

	AIArticle    *int
	AISubpoint   *string
	AICategory   *string
	AIConfidence float64
	AIReasoning  string

	DoctorArticle  *int
	DoctorSubpoint *string
	DoctorCategory string

	CategoryMatchStatus MatchStatus
	ShouldReview        bool
	ReviewReasons       []string
	Recommendations     []string
	IsHealthy           bool

	ModelUsed            string
	TotalDurationSeconds float64
}

// AnalysisResult is the persisted form of a verdict for the audit store,
// keyed by (conscript, specialty) with replace-on-write semantics.
type AnalysisResult struct {
	ID            uuid.UUID
	ConscriptID   uuid.UUID
	ExaminationID *uuid.UUID
	Specialty     string

	DoctorCategory string
	AICategory     string
	Status         string
	RiskLevel      string
	Article        *int
	Subpoint       *string
	Reasoning      string
	Confidence     float64

	ModelUsed       string
	DurationSeconds float64
	CreatedAt       time.Time
}
