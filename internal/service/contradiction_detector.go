package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/config"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/metrics"

	"go.uber.org/zap"
)

// ContradictionSearcher covers the two retrieval needs of Stage 0: finding
// schedule points in narrative text and recovering ICD-10 codes from free
// diagnosis text. Implemented by RAGService.
type ContradictionSearcher interface {
	SearchDiseasesInText(ctx context.Context, text string, topK int, threshold float64) ([]*models.RAGMatch, error)
	SearchDiseaseNames(ctx context.Context, text string, topK int) ([]*DiseaseMatch, error)
}

// ContradictionDetector runs the pre-AI consistency checks over an
// examination and the conscript's documented history. It does not decide
// who is right; it flags places where the record disagrees with itself.
// At most one contradiction is reported per type.
type ContradictionDetector struct {
	searcher ContradictionSearcher
	config   *config.RAGConfig
	logger   *zap.Logger
}

func NewContradictionDetector(searcher ContradictionSearcher, cfg *config.RAGConfig, logger *zap.Logger) *ContradictionDetector {
	return &ContradictionDetector{
		searcher: searcher,
		config:   cfg,
		logger:   logger,
	}
}

// truncate keeps evidence excerpts short enough for the audit record.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Detect runs all six checks. The pure checks (A, B, E, F) always run; the
// retrieval-backed ones (C, D) are skipped when search fails, and the
// skipped types are returned so the caller can report a degraded run
// instead of a silently clean one.
func (d *ContradictionDetector) Detect(ctx context.Context, exam *models.Examination, history []*models.HistoricalRecord) ([]*models.Contradiction, []models.ContradictionType) {
	diagnosis := exam.AnalysisText()

	var contradictions []*models.Contradiction
	var skipped []models.ContradictionType

	if c := d.checkTypeE(diagnosis, exam.DoctorCategory); c != nil {
		contradictions = append(contradictions, c)
	}
	if c := d.checkTypeF(diagnosis, exam.DoctorCategory); c != nil {
		contradictions = append(contradictions, c)
	}
	if c := d.checkTypeA(diagnosis, history); c != nil {
		contradictions = append(contradictions, c)
	}
	if c := d.checkTypeB(diagnosis, exam.NarrativeFields()); c != nil {
		contradictions = append(contradictions, c)
	}

	if c, err := d.checkTypeC(ctx, exam, diagnosis, history); err != nil {
		d.logger.Warn("Type C check skipped, disease search unavailable", zap.Error(err))
		skipped = append(skipped, models.ContradictionTypeC)
	} else if c != nil {
		contradictions = append(contradictions, c)
	}

	if c, err := d.checkTypeD(ctx, diagnosis, exam.DoctorCategory, exam.Graph); err != nil {
		d.logger.Warn("Type D check skipped, criteria search unavailable", zap.Error(err))
		skipped = append(skipped, models.ContradictionTypeD)
	} else if c != nil {
		contradictions = append(contradictions, c)
	}

	for _, c := range contradictions {
		metrics.ContradictionsFound.WithLabelValues(string(c.Type)).Inc()
	}

	d.logger.Info("Contradiction detection completed",
		zap.String("conscript_id", exam.ConscriptID.String()),
		zap.Int("found", len(contradictions)),
		zap.Int("skipped_checks", len(skipped)),
	)

	return contradictions, skipped
}

// Type E: the conclusion says healthy but the category is not А. No
// healthy conscript may carry any other category.
func (d *ContradictionDetector) checkTypeE(diagnosis, doctorCategory string) *models.Contradiction {
	if !isHealthyText(diagnosis) {
		return nil
	}
	if models.NormalizeCategory(doctorCategory) == models.CategoryFit {
		return nil
	}

	return &models.Contradiction{
		Type:     models.ContradictionTypeE,
		Severity: models.SeverityCritical,
		Description: fmt.Sprintf(
			"ЛОГИЧЕСКАЯ ОШИБКА: Диагноз указывает 'Здоров', но категория годности '%s' вместо 'А'. "+
				"Если призывник здоров, категория должна быть только 'А'.",
			doctorCategory,
		),
		SourceField:    "diagnosis_text",
		TargetField:    "doctor_category",
		SourceValue:    truncate(diagnosis, 200),
		TargetValue:    doctorCategory,
		Recommendation: "Уточнить диагноз или исправить категорию годности",
	}
}

// Type F: a severe disease named in the diagnosis while the category is А.
func (d *ContradictionDetector) checkTypeF(diagnosis, doctorCategory string) *models.Contradiction {
	if models.NormalizeCategory(doctorCategory) != models.CategoryFit {
		return nil
	}

	keyword, found := containsSevereCondition(diagnosis)
	if !found {
		return nil
	}

	return &models.Contradiction{
		Type:     models.ContradictionTypeF,
		Severity: models.SeverityCritical,
		Description: fmt.Sprintf(
			"КРИТИЧЕСКАЯ ОШИБКА: Диагноз содержит признаки тяжелого заболевания ('%s'), "+
				"но категория годности 'А' (полностью годен). "+
				"Тяжелые заболевания несовместимы с категорией 'А'.",
			keyword,
		),
		SourceField:    "diagnosis_text",
		TargetField:    "doctor_category",
		SourceValue:    truncate(diagnosis, 300),
		TargetValue:    doctorCategory,
		Recommendation: "СРОЧНО: Пересмотреть категорию годности. Вероятна механическая ошибка при заполнении.",
	}
}

// Type A: healthy diagnosis while a registry still carries an active,
// unresolved disease. Resolved episodes are not contradictions: a cured
// conscript is legitimately healthy.
func (d *ContradictionDetector) checkTypeA(diagnosis string, history []*models.HistoricalRecord) *models.Contradiction {
	if !isHealthyText(diagnosis) {
		return nil
	}

	for _, record := range history {
		if !record.Active() || record.DiagnosisCode == "" {
			continue
		}

		return &models.Contradiction{
			Type:     models.ContradictionTypeA,
			Severity: models.SeverityHigh,
			Description: fmt.Sprintf(
				"ПРОТИВОРЕЧИЕ: Диагноз указывает 'Здоров', но в источнике '%s' числится активное заболевание %s (%s) без отметки о выздоровлении.",
				record.Kind, record.DiagnosisCode, truncate(record.DiagnosisText, 100),
			),
			SourceField:    "diagnosis_text",
			TargetField:    string(record.Kind),
			SourceValue:    truncate(diagnosis, 200),
			TargetValue:    record.DiagnosisCode,
			Recommendation: "Требуется уточнение: актуально ли заболевание или запись в регистре устарела.",
		}
	}

	return nil
}

// Type B: a disease diagnosis while a narrative field says healthy.
// Medium only: "здоров" in a field often refers to general condition.
func (d *ContradictionDetector) checkTypeB(diagnosis string, fields []models.NarrativeField) *models.Contradiction {
	if isHealthyText(diagnosis) {
		return nil
	}

	for _, field := range fields {
		if !isHealthyText(field.Value) {
			continue
		}

		return &models.Contradiction{
			Type:     models.ContradictionTypeB,
			Severity: models.SeverityMedium,
			Description: fmt.Sprintf(
				"ПРОТИВОРЕЧИЕ: В диагнозе указано заболевание, но в поле '%s' указано, что призывник здоров. "+
					"Возможно, это контекст 'общее состояние удовлетворительное' или ошибка в диагнозе.",
				field.Name,
			),
			SourceField:    "diagnosis_text",
			TargetField:    field.Name,
			SourceValue:    truncate(diagnosis, 200),
			TargetValue:    truncate(field.Value, 200),
			Recommendation: "Уточнить: относится ли 'здоров' к общему состоянию или врач ошибся в диагнозе.",
		}
	}

	return nil
}

// Type C: an active historical record names a different disease of the same
// body system than the one diagnosed now. The ICD-10 chapter stands in for
// the body system; codes missing from a record are recovered from its free
// text through name search.
func (d *ContradictionDetector) checkTypeC(ctx context.Context, exam *models.Examination, diagnosis string, history []*models.HistoricalRecord) (*models.Contradiction, error) {
	if isHealthyText(diagnosis) {
		return nil, nil
	}

	examCode, err := d.examinationCode(ctx, exam, diagnosis)
	if err != nil {
		return nil, err
	}
	if examCode == "" {
		return nil, nil
	}
	examChapter := models.ICD10Chapter(examCode)
	if examChapter == "" {
		return nil, nil
	}

	for _, record := range history {
		if !record.Active() {
			continue
		}

		code := record.DiagnosisCode
		if code == "" && strings.TrimSpace(record.DiagnosisText) != "" {
			names, err := d.searcher.SearchDiseaseNames(ctx, record.DiagnosisText, 1)
			if err != nil {
				return nil, err
			}
			if len(names) > 0 {
				code = names[0].Code
			}
		}
		if code == "" {
			continue
		}

		if models.ICD10Chapter(code) != examChapter {
			continue
		}
		if sameDiseaseGroup(examCode, code) {
			continue
		}

		return &models.Contradiction{
			Type:     models.ContradictionTypeC,
			Severity: models.SeverityMedium,
			Description: fmt.Sprintf(
				"ПРОТИВОРЕЧИЕ: В диагнозе указано заболевание %s, но в источнике '%s' числится активное заболевание %s той же системы органов. "+
					"Возможно, основной диагноз определен не полностью.",
				examCode, record.Kind, code,
			),
			SourceField:    "diagnosis_text",
			TargetField:    string(record.Kind),
			SourceValue:    examCode,
			TargetValue:    code,
			Recommendation: "Необходимо определить основной диагноз с учетом истории болезни.",
		}, nil
	}

	return nil, nil
}

// examinationCode returns the examination's primary ICD-10 code, recovering
// it from the diagnosis text when the doctor tagged none.
func (d *ContradictionDetector) examinationCode(ctx context.Context, exam *models.Examination, diagnosis string) (string, error) {
	for _, code := range exam.ICD10Codes {
		if strings.TrimSpace(code) != "" {
			return strings.TrimSpace(code), nil
		}
	}

	names, err := d.searcher.SearchDiseaseNames(ctx, diagnosis, 1)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0].Code, nil
}

// sameDiseaseGroup treats codes sharing the three-character rubric as the
// same disease (J35.1 vs J35.8 is not a contradiction).
func sameDiseaseGroup(a, b string) bool {
	norm := func(code string) string {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) > 3 {
			code = code[:3]
		}
		return code
	}
	return norm(a) == norm(b)
}

// Type D: the schedule prescribes a stricter category than the doctor
// assigned. A doctor being stricter than the schedule is not flagged.
func (d *ContradictionDetector) checkTypeD(ctx context.Context, diagnosis, doctorCategory string, graph int) (*models.Contradiction, error) {
	if isHealthyText(diagnosis) {
		return nil, nil
	}

	diseases, err := d.searcher.SearchDiseasesInText(ctx, diagnosis, 1, d.config.StrictThreshold)
	if err != nil {
		return nil, err
	}
	if len(diseases) == 0 {
		return nil, nil
	}

	bestMatch := diseases[0]
	expected := bestMatch.Categories[graph]
	if expected == nil || *expected == "" {
		return nil, nil
	}

	expectedNormalized := models.NormalizeCategory(*expected)
	doctorNormalized := models.NormalizeCategory(doctorCategory)

	if !models.CategoryStricter(expectedNormalized, doctorNormalized) {
		return nil, nil
	}

	return &models.Contradiction{
		Type:     models.ContradictionTypeD,
		Severity: models.SeverityHigh,
		Description: fmt.Sprintf(
			"НЕСООТВЕТСТВИЕ КАТЕГОРИИ: Врач поставил категорию '%s', но по статье %d, подпункт %s "+
				"для графа %d ожидается категория '%s'.",
			doctorCategory, bestMatch.Article, subpointOrDash(bestMatch.Subpoint), graph, expectedNormalized,
		),
		SourceField:    "doctor_category",
		TargetField:    "handbook_category",
		SourceValue:    doctorCategory,
		TargetValue:    expectedNormalized,
		RAGMatches:     []*models.RAGMatch{bestMatch},
		Recommendation: fmt.Sprintf("Проверить соответствие категории Расписанию болезней, статья %d, подпункт %s.", bestMatch.Article, subpointOrDash(bestMatch.Subpoint)),
	}, nil
}

func subpointOrDash(subpoint string) string {
	if subpoint == "" {
		return "-"
	}
	return subpoint
}
