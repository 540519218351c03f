package models

// ContradictionType identifies one of the six fixed contradiction classes.
// The set is closed; the string values match the source system's wire format.
type ContradictionType string

const (
	// ContradictionTypeA - "здоров" в диагнозе, активная болезнь в истории.
	ContradictionTypeA ContradictionType = "TYPE_A_HEALTHY_VS_DISEASE"
	// ContradictionTypeB - болезнь в диагнозе, "здоров" в жалобах/анамнезе.
	ContradictionTypeB ContradictionType = "TYPE_B_DISEASE_VS_HEALTHY"
	// ContradictionTypeC - болезнь A в диагнозе, несвязанная болезнь B той же
	// системы органов в истории.
	ContradictionTypeC ContradictionType = "TYPE_C_DISEASE_A_VS_DISEASE_B"
	// ContradictionTypeD - категория справочника строже категории врача.
	ContradictionTypeD ContradictionType = "TYPE_D_CATEGORY_MISMATCH"
	// ContradictionTypeE - "здоров" при категории, отличной от "А".
	ContradictionTypeE ContradictionType = "TYPE_E_LOGICAL_ERROR"
	// ContradictionTypeF - тяжёлый диагноз при категории "А".
	ContradictionTypeF ContradictionType = "TYPE_F_OBVIOUS_CATEGORY_MISMATCH"
)

// Severity grades a contradiction or the overall risk of a verdict.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the numeric order of a severity, 0 for unknown values.
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// MaxSeverity returns the most severe of the given values,
// SeverityLow when the list is empty.
func MaxSeverity(severities ...Severity) Severity {
	max := SeverityLow
	for _, s := range severities {
		if s.Rank() > max.Rank() {
			max = s
		}
	}
	return max
}

// RAGMatch is a regulation criterion matched by similarity search, kept on
// a contradiction as supporting evidence.
type RAGMatch struct {
	Article     int
	Subpoint    string
	Description string
	Similarity  float64
	Categories  map[int]*string
}

// Contradiction is one detected inconsistency between the examination, the
// conscript's history and the regulation. Created once per detected
// conflict per pipeline run, never updated.
type Contradiction struct {
	Type           ContradictionType
	Severity       Severity
	Description    string
	SourceField    string
	TargetField    string
	SourceValue    string
	TargetValue    string
	RAGMatches     []*RAGMatch
	Recommendation string
}
