package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/ports"
)

const reportColumns = `
		SELECT id, COALESCE(title, ''), category, priority, status,
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lng,
		       created_at, resolved_at
		FROM reports`

// ReportRepo implements ports.ReportRepository over the PostGIS reports table.
// Reads go through a circuit breaker so an unreachable store fails fast.
type ReportRepo struct {
	db      *DB
	breaker *gobreaker.CircuitBreaker[[]domain.Report]
}

// NewReportRepo creates a new ReportRepo.
func NewReportRepo(db *DB, opts BreakerOptions) *ReportRepo {
	return &ReportRepo{
		db:      db,
		breaker: newBreaker[[]domain.Report]("report-store", opts),
	}
}

// Find returns the reports matching q, newest first.
func (r *ReportRepo) Find(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
	sql, args := buildFindQuery(q)
	reports, err := r.breaker.Execute(func() ([]domain.Report, error) {
		return r.query(ctx, sql, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	return reports, nil
}

// GetByIDs returns the reports with the given IDs, in arbitrary order.
// Unknown IDs are skipped.
func (r *ReportRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Report, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	reports, err := r.breaker.Execute(func() ([]domain.Report, error) {
		return r.query(ctx, reportColumns+`
		WHERE id::text = ANY($1)`, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("get reports by id: %w", err)
	}
	return reports, nil
}

func (r *ReportRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Report, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

func scanReport(row pgx.Row) (domain.Report, error) {
	var (
		rep                        domain.Report
		category, priority, status string
		resolvedAt                 *time.Time
	)
	if err := row.Scan(
		&rep.ID, &rep.Title, &category, &priority, &status,
		&rep.Location.Lat, &rep.Location.Lng,
		&rep.CreatedAt, &resolvedAt,
	); err != nil {
		return domain.Report{}, err
	}
	rep.Category = domain.Category(category)
	rep.Priority = domain.Priority(priority)
	rep.Status = domain.Status(status)
	rep.ResolvedAt = resolvedAt
	return rep, nil
}

// buildFindQuery renders q into SQL with positional arguments.
func buildFindQuery(q ports.ReportQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Bounds != nil {
		b := q.Bounds
		where = append(where, fmt.Sprintf("location::geometry && ST_MakeEnvelope(%s, %s, %s, %s, 4326)",
			arg(b.West), arg(b.South), arg(b.East), arg(b.North)))
	}
	if len(q.Filter.Categories) > 0 {
		where = append(where, "category = ANY("+arg(toStrings(q.Filter.Categories))+")")
	}
	if len(q.Filter.Statuses) > 0 {
		where = append(where, "status = ANY("+arg(toStrings(q.Filter.Statuses))+")")
	}
	if len(q.Filter.Priorities) > 0 {
		where = append(where, "priority = ANY("+arg(toStrings(q.Filter.Priorities))+")")
	}
	if q.Filter.DateFrom != nil {
		where = append(where, "created_at >= "+arg(*q.Filter.DateFrom))
	}
	if q.Filter.DateTo != nil {
		where = append(where, "created_at <= "+arg(*q.Filter.DateTo))
	}
	if q.ExcludeID != "" {
		where = append(where, "id::text <> "+arg(q.ExcludeID))
	}

	var sb strings.Builder
	sb.WriteString(reportColumns)
	if len(where) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(where, "\n\t\t  AND "))
	}
	sb.WriteString("\n\t\tORDER BY created_at DESC, id")
	if q.Limit > 0 {
		sb.WriteString("\n\t\tLIMIT " + arg(q.Limit))
	}
	return sb.String(), args
}

func toStrings[T ~string](vs []T) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}
