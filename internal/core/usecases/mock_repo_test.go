package usecases_test

import (
	"context"
	"sort"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/ports"
)

// --- Mock ReportRepository ---

type mockReportRepo struct {
	findFn     func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error)
	getByIDsFn func(ctx context.Context, ids []string) ([]domain.Report, error)
}

func (m *mockReportRepo) Find(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
	if m.findFn != nil {
		return m.findFn(ctx, q)
	}
	return nil, nil
}

func (m *mockReportRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Report, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

// memoryRepo answers queries from a fixed slice the way the database does:
// bounds, filter, exclusion and limit applied, newest first.
func memoryRepo(reports ...domain.Report) *mockReportRepo {
	return &mockReportRepo{
		findFn: func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
			var out []domain.Report
			for _, r := range reports {
				if q.Bounds != nil && !q.Bounds.Contains(r.Location) {
					continue
				}
				if q.ExcludeID != "" && r.ID == q.ExcludeID {
					continue
				}
				if !q.Filter.Matches(r) {
					continue
				}
				out = append(out, r)
			}
			sort.SliceStable(out, func(i, j int) bool {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			})
			if q.Limit > 0 && len(out) > q.Limit {
				out = out[:q.Limit]
			}
			return out, nil
		},
		getByIDsFn: func(ctx context.Context, ids []string) ([]domain.Report, error) {
			want := make(map[string]bool, len(ids))
			for _, id := range ids {
				want[id] = true
			}
			var out []domain.Report
			for _, r := range reports {
				if want[r.ID] {
					out = append(out, r)
				}
			}
			return out, nil
		},
	}
}

func report(id string, lat, lng float64, cat domain.Category, prio domain.Priority) domain.Report {
	return domain.Report{
		ID:       id,
		Category: cat,
		Priority: prio,
		Status:   domain.StatusPending,
		Location: domain.GeoPoint{Lat: lat, Lng: lng},
	}
}
