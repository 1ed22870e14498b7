package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/civicmap/internal/core/usecases"
)

// SweepWindow is the report time range one sweep run scans.
type SweepWindow struct {
	From       time.Time
	To         time.Time
	MinReports int
	RadiusKm   float64
}

// SweepActivities holds the activity implementations for the hotspot sweep.
type SweepActivities struct {
	Hotspots *usecases.HotspotService
}

// RunHotspotSweep detects hotspots in the window and publishes one alert per
// hotspot. It returns the number of alerts produced.
func (a *SweepActivities) RunHotspotSweep(ctx context.Context, w SweepWindow) (int, error) {
	from, to := w.From, w.To
	alerts, err := a.Hotspots.Sweep(ctx, usecases.HotspotQuery{
		DateFrom:   &from,
		DateTo:     &to,
		MinReports: w.MinReports,
		RadiusKm:   w.RadiusKm,
	})
	if err != nil {
		return 0, fmt.Errorf("hotspot sweep: %w", err)
	}

	activity.GetLogger(ctx).Info("hotspot sweep finished",
		"from", from.Format(time.RFC3339), "to", to.Format(time.RFC3339), "alerts", len(alerts))
	return len(alerts), nil
}
