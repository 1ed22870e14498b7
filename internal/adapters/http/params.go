package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/civicmap/internal/core/domain"
)

// boundsParams are the required box parameters shared by /maps/reports and
// /maps/heatmap.
type boundsParams struct {
	North *float64 `query:"north" json:"north" validate:"required,latitude"`
	South *float64 `query:"south" json:"south" validate:"required,latitude"`
	East  *float64 `query:"east" json:"east" validate:"required,longitude"`
	West  *float64 `query:"west" json:"west" validate:"required,longitude"`
}

func (b boundsParams) box() domain.BoundingBox {
	return domain.BoundingBox{North: *b.North, South: *b.South, East: *b.East, West: *b.West}
}

// filterParams are the optional report filters. List values are comma separated.
type filterParams struct {
	Categories string `query:"categories"`
	Statuses   string `query:"statuses"`
	Priorities string `query:"priorities"`
	DateFrom   string `query:"dateFrom"`
	DateTo     string `query:"dateTo"`
}

func (f filterParams) filter() (domain.ReportFilter, error) {
	var (
		out domain.ReportFilter
		err error
	)
	if out.Categories, err = parseList(f.Categories, domain.ParseCategory); err != nil {
		return out, err
	}
	if out.Statuses, err = parseList(f.Statuses, domain.ParseStatus); err != nil {
		return out, err
	}
	if out.Priorities, err = parseList(f.Priorities, domain.ParsePriority); err != nil {
		return out, err
	}
	if out.DateFrom, out.DateTo, err = parseDateRange(f.DateFrom, f.DateTo); err != nil {
		return out, err
	}
	return out, nil
}

// parseList splits a comma separated list and parses every entry. Empty
// entries are skipped and duplicates kept once.
func parseList[T comparable](raw string, parse func(string) (T, error)) ([]T, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []T
	seen := make(map[T]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := parse(part)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// parseDateRange accepts RFC 3339 timestamps or plain dates. A plain dateTo
// covers its whole day.
func parseDateRange(from, to string) (*time.Time, *time.Time, error) {
	f, err := parseDate("dateFrom", from, false)
	if err != nil {
		return nil, nil, err
	}
	t, err := parseDate("dateTo", to, true)
	if err != nil {
		return nil, nil, err
	}
	return f, t, nil
}

func parseDate(name, raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp or YYYY-MM-DD date", name)
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return &d, nil
}
