package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// SweepWorkflowID is the fixed ID of the cron sweep, so a second starter
// attaches to the running schedule instead of creating another.
const SweepWorkflowID = "civicmap-hotspot-sweep"

// SweepInput is the input for the hotspot sweep workflow.
type SweepInput struct {
	MinReports int
	RadiusKm   float64
	Lookback   time.Duration
}

// SweepResult reports what one sweep run produced.
type SweepResult struct {
	From   time.Time
	To     time.Time
	Alerts int
}

// HotspotSweepWorkflow scans the last Lookback of reports for hotspots and
// publishes an alert for each. It is started on a cron schedule; every run
// is independent.
func HotspotSweepWorkflow(ctx workflow.Context, input SweepInput) (SweepResult, error) {
	logger := workflow.GetLogger(ctx)

	to := workflow.Now(ctx).UTC()
	window := SweepWindow{
		From:       to.Add(-input.Lookback),
		To:         to,
		MinReports: input.MinReports,
		RadiusKm:   input.RadiusKm,
	}
	logger.Info("Starting hotspot sweep", "lookback", input.Lookback.String())

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var alerts int
	if err := workflow.ExecuteActivity(ctx, "RunHotspotSweep", window).Get(ctx, &alerts); err != nil {
		return SweepResult{}, err
	}

	logger.Info("Hotspot sweep completed", "alerts", alerts)
	return SweepResult{From: window.From, To: window.To, Alerts: alerts}, nil
}
