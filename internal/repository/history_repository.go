package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// HistoryRepository aggregates the four external registries that hold a
// conscript's medical past: outpatient visits, hospitalizations, emergency
// admissions and special statuses. They live in separate tables with
// different shapes, so each loader maps its rows into HistoricalRecord.
type HistoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHistoryRepository(db *pgxpool.Pool, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// ListByConscript returns the merged history across all registries, newest
// first. A failure in one registry fails the whole load: contradiction
// checks against partial history would silently miss conflicts.
func (r *HistoryRepository) ListByConscript(ctx context.Context, conscriptID uuid.UUID) ([]*models.HistoricalRecord, error) {
	var all []*models.HistoricalRecord

	loaders := []func(context.Context, uuid.UUID) ([]*models.HistoricalRecord, error){
		r.listOutpatient,
		r.listHospitalizations,
		r.listEmergency,
		r.listSpecialStatuses,
	}

	for _, load := range loaders {
		records, err := load(ctx, conscriptID)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}

	sortRecordsByDateDesc(all)
	return all, nil
}

func (r *HistoryRepository) listOutpatient(ctx context.Context, conscriptID uuid.UUID) ([]*models.HistoricalRecord, error) {
	query := squirrel.Select("id", "diagnosis_code", "diagnosis_text", "visit_date", "end_date", "clinic_name").
		From("erdb_diagnoses_history").
		Where(squirrel.Eq{"conscript_id": conscriptID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoricalRecord
	for rows.Next() {
		rec := &models.HistoricalRecord{ConscriptID: conscriptID, Kind: models.RecordOutpatient}
		var code, text, clinic *string
		var visitDate, endDate *time.Time
		if err := rows.Scan(&rec.ID, &code, &text, &visitDate, &endDate, &clinic); err != nil {
			return nil, err
		}
		rec.DiagnosisCode = deref(code)
		rec.DiagnosisText = deref(text)
		rec.Facility = deref(clinic)
		if visitDate != nil {
			rec.Date = *visitDate
		}
		// An open outpatient episode (no end date) counts as unresolved.
		rec.Resolved = endDate != nil
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *HistoryRepository) listHospitalizations(ctx context.Context, conscriptID uuid.UUID) ([]*models.HistoricalRecord, error) {
	query := squirrel.Select("id", "diagnosis_code", "diagnosis_text", "admission_date", "outcome", "hospital_name").
		From("ersb_history").
		Where(squirrel.Eq{"conscript_id": conscriptID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoricalRecord
	for rows.Next() {
		rec := &models.HistoricalRecord{ConscriptID: conscriptID, Kind: models.RecordHospitalization}
		var code, text, outcome, hospital *string
		var admitted *time.Time
		if err := rows.Scan(&rec.ID, &code, &text, &admitted, &outcome, &hospital); err != nil {
			return nil, err
		}
		rec.DiagnosisCode = deref(code)
		rec.DiagnosisText = deref(text)
		rec.Facility = deref(hospital)
		rec.Details = deref(outcome)
		if admitted != nil {
			rec.Date = *admitted
		}
		rec.Resolved = outcome != nil && strings.Contains(strings.ToLower(*outcome), "выздоров")
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *HistoryRepository) listEmergency(ctx context.Context, conscriptID uuid.UUID) ([]*models.HistoricalRecord, error) {
	query := squirrel.Select("id", "diagnosis_code", "diagnosis_text", "admission_date", "department").
		From("bureau_hospitalization").
		Where(squirrel.Eq{"conscript_id": conscriptID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoricalRecord
	for rows.Next() {
		rec := &models.HistoricalRecord{ConscriptID: conscriptID, Kind: models.RecordEmergency}
		var code, text, department *string
		var admitted *time.Time
		if err := rows.Scan(&rec.ID, &code, &text, &admitted, &department); err != nil {
			return nil, err
		}
		rec.DiagnosisCode = deref(code)
		rec.DiagnosisText = deref(text)
		rec.Facility = deref(department)
		if admitted != nil {
			rec.Date = *admitted
		}
		// Emergency admissions carry no outcome field, treat as unresolved.
		rec.Resolved = false
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *HistoryRepository) listSpecialStatuses(ctx context.Context, conscriptID uuid.UUID) ([]*models.HistoricalRecord, error) {
	query := squirrel.Select("id", "status_name", "diagnosis_code", "registered_date", "removed_date").
		From("erdb_special_statuses").
		Where(squirrel.Eq{"conscript_id": conscriptID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoricalRecord
	for rows.Next() {
		rec := &models.HistoricalRecord{ConscriptID: conscriptID, Kind: models.RecordSpecialStatus}
		var status, code *string
		var registered, removed *time.Time
		if err := rows.Scan(&rec.ID, &status, &code, &registered, &removed); err != nil {
			return nil, err
		}
		rec.DiagnosisCode = deref(code)
		rec.DiagnosisText = deref(status)
		if registered != nil {
			rec.Date = *registered
		}
		rec.Resolved = removed != nil
		records = append(records, rec)
	}

	return records, rows.Err()
}

func sortRecordsByDateDesc(records []*models.HistoricalRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
