package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

const reportColumns = "id, comment_id, reporter_id, reason, details, status, created_at, updated_at"

// ReportRepository provides persistence for comment reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// GetByID returns a report by identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM comment_reports WHERE id = $1", reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// Create inserts a report. The unique index on (comment_id, reporter_id)
// turns duplicate reports into a unique violation.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	if report.Status == "" {
		report.Status = models.ReportPending
	}
	const query = `INSERT INTO comment_reports (id, comment_id, reporter_id, reason, details, status, created_at, updated_at)
VALUES (:id, :comment_id, :reporter_id, :reason, :details, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// UpdateStatusFromPending transitions PENDING -> status and reports whether
// a row was moved. The WHERE clause is the state machine: nothing ever
// leaves REVIEWED or IGNORED through this path.
func (r *ReportRepository) UpdateStatusFromPending(ctx context.Context, id string, status models.ReportStatus) (bool, error) {
	const query = `UPDATE comment_reports SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update report status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Delete removes a report regardless of status (reporter cancellation).
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM comment_reports WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

// List returns reports matching the filter with a total count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	baseQuery := `FROM comment_reports WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.ReporterID != "" {
		conditions = append(conditions, fmt.Sprintf("reporter_id = $%d", len(args)+1))
		args = append(args, filter.ReporterID)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := normalizePage(filter.PageParams, map[string]bool{"created_at": true, "updated_at": true, "status": true})

	listQuery := fmt.Sprintf("SELECT %s %s %s", reportColumns, baseQuery, pageClause(page))
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	return reports, total, nil
}
