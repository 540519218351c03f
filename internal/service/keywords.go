package service

import "strings"

// Russian marker vocabularies for conclusion texts. Matching is substring
// based on the lowercased text, so stems cover inflected forms
// ("злокачественн" matches both "злокачественная" and "злокачественное").

var healthyKeywords = []string{
	"здоров",
	"патологии не выявлено",
	"патологий не выявлено",
	"патологических изменений не выявлено",
	"без патологии",
	"жалоб нет",
	"жалоб не предъявляет",
	"в пределах нормы",
	"соответствует норме",
}

var pathologyKeywords = []string{
	"заболевание",
	"болезнь",
	"патология",
	"синдром",
	"расстройство",
	"недостаточность",
	"деформация",
	"дистрофия",
	"воспаление",
	"обострение",
	"хронический",
	"хроническая",
}

var severeKeywords = []string{
	"туберкулез",
	"туберкулёз",
	"вич",
	"гепатит в",
	"гепатит с",
	"шизофрения",
	"эпилепсия",
	"сахарный диабет",
	"злокачественн",
	"онколог",
	"лейкоз",
	"порок сердца",
	"психоз",
	"цирроз",
	"инсульт",
	"инфаркт",
}

// isHealthyText reports whether the text states the conscript is healthy.
// A healthy marker alone is not enough: a pathology keyword without a
// preceding negation overrides it ("здоров, но хронический гастрит").
func isHealthyText(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	textLower := strings.ToLower(text)

	var hasHealthy bool
	for _, keyword := range healthyKeywords {
		if strings.Contains(textLower, keyword) {
			hasHealthy = true
			break
		}
	}
	if !hasHealthy {
		return false
	}

	negations := []string{"не ", "нет ", "без ", "отсутств"}
	for _, keyword := range pathologyKeywords {
		pos := strings.Index(textLower, keyword)
		if pos == -1 {
			continue
		}

		before := textLower[max(0, pos-20):pos]
		negated := false
		for _, neg := range negations {
			if strings.Contains(before, neg) {
				negated = true
				break
			}
		}
		if !negated {
			return false
		}
	}

	return true
}

// containsSevereCondition finds a severe-disease marker that is not negated
// in its surrounding context. Negation is checked both before the keyword
// ("нет туберкулеза") and after it ("туберкулез не выявлен").
func containsSevereCondition(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	textLower := strings.ToLower(text)

	negationBefore := []string{"не ", "нет ", "без ", "отсутств", "исключ"}
	negationAfter := []string{" не ", " нет", " отсутств", " исключ", " не обнаруж", " не выявл"}

	for _, keyword := range severeKeywords {
		pos := strings.Index(textLower, keyword)
		if pos == -1 {
			continue
		}
		end := pos + len(keyword)

		before := textLower[max(0, pos-25):pos]
		after := textLower[end:min(len(textLower), end+30)]

		negated := false
		for _, neg := range negationBefore {
			if strings.Contains(before, neg) {
				negated = true
				break
			}
		}
		if !negated {
			for _, neg := range negationAfter {
				if strings.Contains(after, neg) {
					negated = true
					break
				}
			}
		}
		if negated {
			continue
		}

		return keyword, true
	}

	return "", false
}
