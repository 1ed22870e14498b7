package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
)

// Category classifies what kind of problem a report describes.
type Category string

const (
	CategoryPothole       Category = "POTHOLE"
	CategoryStreetlight   Category = "STREETLIGHT"
	CategoryWaterLeak     Category = "WATER_LEAK"
	CategoryPowerOutage   Category = "POWER_OUTAGE"
	CategoryGarbage       Category = "GARBAGE"
	CategoryGraffiti      Category = "GRAFFITI"
	CategoryTrafficSignal Category = "TRAFFIC_SIGNAL"
	CategoryNoise         Category = "NOISE"
	CategoryFallenTree    Category = "FALLEN_TREE"
	CategoryOther         Category = "OTHER"
)

// Categories lists every known category in declaration order.
var Categories = []Category{
	CategoryPothole, CategoryStreetlight, CategoryWaterLeak, CategoryPowerOutage, CategoryGarbage,
	CategoryGraffiti, CategoryTrafficSignal, CategoryNoise, CategoryFallenTree, CategoryOther,
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Status is the workflow state of a report. It is owned by the workflow
// subsystem; analytics only read it.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusResolved     Status = "RESOLVED"
	StatusRejected     Status = "REJECTED"
)

var Statuses = []Status{StatusPending, StatusAcknowledged, StatusInProgress, StatusResolved, StatusRejected}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Priority is the urgency assigned to a report.
type Priority string

const (
	PriorityNormal   Priority = "NORMAL"
	PriorityUrgent   Priority = "URGENT"
	PriorityCritical Priority = "CRITICAL"
)

var Priorities = []Priority{PriorityNormal, PriorityUrgent, PriorityCritical}

// ParsePriority parses a priority name case-insensitively.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Priorities {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Weight is the density weight used by clustering, heatmaps and hotspots.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityUrgent:
		return 2
	default:
		return 1
	}
}

// RouteWeight scales travel distance when picking the next field visit.
// Lower values get visited sooner.
func (p Priority) RouteWeight() float64 {
	switch p {
	case PriorityCritical:
		return 0.5
	case PriorityUrgent:
		return 0.7
	default:
		return 1.0
	}
}

// Report is the read-only projection of a citizen issue report.
type Report struct {
	ID         string     `json:"id"`
	Title      string     `json:"title,omitempty"`
	Category   Category   `json:"category"`
	Priority   Priority   `json:"priority"`
	Status     Status     `json:"status"`
	Location   GeoPoint   `json:"location"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	DistanceKm *float64   `json:"distanceKm,omitempty"` // computed field
}

// ReportFilter narrows a report query. Empty sets match everything.
type ReportFilter struct {
	Categories []Category
	Statuses   []Status
	Priorities []Priority
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Matches reports whether r passes every filter criterion.
func (f ReportFilter) Matches(r Report) bool {
	if len(f.Categories) > 0 && !contains(f.Categories, r.Category) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, r.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, r.Priority) {
		return false
	}
	if f.DateFrom != nil && r.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
