package telemetry

// Span attribute keys for analytics operations.
const (
	AttrOperation   = "analytics.operation"
	AttrScanned     = "analytics.reports_scanned"
	AttrReturned    = "analytics.results_returned"
	AttrCellSizeDeg = "analytics.cell_size_deg"
)
