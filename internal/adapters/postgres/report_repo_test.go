package postgres

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/ports"
)

func TestBuildFindQuery_Unfiltered(t *testing.T) {
	sql, args := buildFindQuery(ports.ReportQuery{})
	if strings.Contains(sql, "WHERE") {
		t.Errorf("expected no WHERE clause, got:\n%s", sql)
	}
	if strings.Contains(sql, "LIMIT") {
		t.Errorf("expected no LIMIT for Limit 0, got:\n%s", sql)
	}
	if !strings.Contains(sql, "ORDER BY created_at DESC, id") {
		t.Errorf("expected newest-first ordering, got:\n%s", sql)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestBuildFindQuery_AllCriteria(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	q := ports.ReportQuery{
		Bounds: &domain.BoundingBox{North: 41, South: 40, East: -73, West: -75},
		Filter: domain.ReportFilter{
			Categories: []domain.Category{domain.CategoryPothole, domain.CategoryNoise},
			Statuses:   []domain.Status{domain.StatusPending},
			Priorities: []domain.Priority{domain.PriorityCritical},
			DateFrom:   &from,
			DateTo:     &to,
		},
		ExcludeID: "r-1",
		Limit:     1000,
	}

	sql, args := buildFindQuery(q)

	for _, want := range []string{
		"ST_MakeEnvelope($1, $2, $3, $4, 4326)",
		"category = ANY($5)",
		"status = ANY($6)",
		"priority = ANY($7)",
		"created_at >= $8",
		"created_at <= $9",
		"id::text <> $10",
		"LIMIT $11",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("expected %q in:\n%s", want, sql)
		}
	}

	want := []any{
		-75.0, 40.0, -73.0, 41.0,
		[]string{"POTHOLE", "NOISE"},
		[]string{"PENDING"},
		[]string{"CRITICAL"},
		from, to,
		"r-1",
		1000,
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %#v\nwant %#v", args, want)
	}
}

func TestBreakerOptionsDefaults(t *testing.T) {
	o := BreakerOptions{}.withDefaults()
	if o.FailureThreshold != 5 || o.OpenTimeout != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", o)
	}
	o = BreakerOptions{FailureThreshold: 2, OpenTimeout: time.Second}.withDefaults()
	if o.FailureThreshold != 2 || o.OpenTimeout != time.Second {
		t.Errorf("explicit options overwritten: %+v", o)
	}
}
