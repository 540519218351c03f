package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordKind tags the source register a historical record came from.
type RecordKind string

const (
	// RecordOutpatient - амбулаторные обращения (ЭРДБ).
	RecordOutpatient RecordKind = "outpatient"
	// RecordHospitalization - стационарные госпитализации (ЭРСБ).
	RecordHospitalization RecordKind = "hospitalization"
	// RecordEmergency - визиты бюро госпитализации и скорой помощи.
	RecordEmergency RecordKind = "emergency"
	// RecordSpecialStatus - специальные учёты (наркология, психиатрия,
	// туберкулёз, кожвен).
	RecordSpecialStatus RecordKind = "special_status"
)

// HistoricalRecord is one entry of a conscript's documented medical
// history. Read-only input to contradiction detection; the pipeline never
// mutates it.
type HistoricalRecord struct {
	ID          uuid.UUID
	ConscriptID uuid.UUID
	Kind        RecordKind

	DiagnosisCode string
	DiagnosisText string
	Date          time.Time

	// Resolved is true when the source register marks the condition as
	// closed: deregistered outpatient observation or a hospitalization
	// discharged with recovery.
	Resolved bool

	Facility string
	Details  string
}

// Active reports whether the record documents a condition without a
// recorded resolution.
func (r *HistoricalRecord) Active() bool {
	return !r.Resolved
}
