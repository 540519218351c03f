package models

import (
	"strings"
	"time"
)

// GraphCount is the number of conscription graphs in the regulation table:
// 1 - призывники, 2 - контрактники, 3 - курсанты, 4 - спецподразделения.
const GraphCount = 4

// RegulationCriterion is one row of the regulation table (Order 722,
// Appendix 2 criteria joined with Appendix 1 categories): the clinical
// criteria text for an (article, subpoint) pair plus the fitness category
// assigned per conscription graph. A nil category means the subpoint does
// not apply to that graph.
type RegulationCriterion struct {
	ID          int
	Article     int
	Subpoint    string
	PointName   string
	Description string
	Keywords    string
	Categories  map[int]*string
	Embedding   []float32
	CreatedAt   time.Time
}

// CategoryForGraph returns the category assigned for the graph and whether
// the graph number is valid.
func (c *RegulationCriterion) CategoryForGraph(graph int) (*string, bool) {
	if graph < 1 || graph > GraphCount {
		return nil, false
	}
	return c.Categories[graph], true
}

// NormalizeSubpoint maps the subpoint spellings seen in the source data
// ("null", "None", whitespace) to the canonical empty string used for
// articles without subpoints.
func NormalizeSubpoint(subpoint string) string {
	s := strings.TrimSpace(subpoint)
	if s == "null" || s == "None" {
		return ""
	}
	return s
}

// ICD10Entry is one disease from the ICD-10 dictionary with a precomputed
// embedding of its Russian name, used to recover diagnosis codes from
// free text.
type ICD10Entry struct {
	ID        int
	Code      string
	NameRU    string
	NameKZ    string
	Level     int
	Embedding []float32
}

// ICD10Chapter returns the chapter letter of an ICD-10 code, used as a
// coarse body-system grouping. Empty for malformed codes.
func ICD10Chapter(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	r := code[0]
	if r < 'A' || r > 'Z' {
		return ""
	}
	return string(r)
}
