package domain

import "time"

// ClusterPoint groups the reports that snap to the same grid cell.
type ClusterPoint struct {
	Location         GeoPoint   `json:"location"` // cell centre
	Count            int        `json:"count"`
	MemberIDs        []string   `json:"memberIds"`
	Categories       []Category `json:"categories"`
	Statuses         []Status   `json:"statuses"`
	AvgPriorityScore float64    `json:"avgPriorityScore"`
}

// HeatmapPoint is one weighted cell of a density heatmap. Intensity is not
// normalized; scaling to a colour ramp is up to the renderer.
type HeatmapPoint struct {
	Location  GeoPoint `json:"location"`
	Intensity float64  `json:"intensity"`
}

// Hotspot is a grid cell where one category accumulated at least the
// requested number of reports.
type Hotspot struct {
	Center      GeoPoint `json:"center"` // mean of member locations
	Radius      float64  `json:"radius"` // km, echoed from the request
	ReportCount int      `json:"reportCount"`
	Category    Category `json:"category"`
	Density     int      `json:"density"`
}

// HotspotAlert is the event broadcast when a sweep finds a hotspot.
type HotspotAlert struct {
	ID         string    `json:"id"`
	DetectedAt time.Time `json:"detectedAt"`
	Hotspot    Hotspot   `json:"hotspot"`
}

// Zone is a caller-supplied named area. Zones are not persisted.
type Zone struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Bounds BoundingBox `json:"bounds"`
}

// CategoryCount pairs a category with the number of reports in it.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// PriorityDistribution is a three-way priority histogram.
type PriorityDistribution struct {
	Normal   int `json:"normal"`
	Urgent   int `json:"urgent"`
	Critical int `json:"critical"`
}

// ZoneReport summarises the reports inside one zone.
type ZoneReport struct {
	ZoneID               string               `json:"zoneId"`
	ZoneName             string               `json:"zoneName"`
	TotalReports         int                  `json:"totalReports"`
	ResolvedReports      int                  `json:"resolvedReports"`
	AvgResolutionHours   *float64             `json:"avgResolutionHours"`
	TopCategories        []CategoryCount      `json:"topCategories"`
	PriorityDistribution PriorityDistribution `json:"priorityDistribution"`
}

// RoutePlan is an ordered field-visit sequence. Plans are computed on every
// request and never cached since assignments change between calls.
type RoutePlan struct {
	VisitOrder       []string `json:"visitOrder"`
	TotalDistanceKm  float64  `json:"totalDistanceKm"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
}
