package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/usecases"
)

type reportsParams struct {
	Clustered     bool    `query:"clustered"`
	ClusterRadius float64 `query:"clusterRadius" validate:"gte=0,lte=1"`
}

type heatmapParams struct {
	GridSize float64 `query:"gridSize" validate:"gte=0,lte=1"`
}

type nearbyParams struct {
	Lat             *float64 `query:"lat" validate:"required,latitude"`
	Lng             *float64 `query:"lng" validate:"required,longitude"`
	RadiusKm        *float64 `query:"radiusKm" validate:"omitempty,gte=0.1,lte=50"`
	Categories      string   `query:"categories"`
	ExcludeReportID string   `query:"excludeReportId" validate:"max=64"`
	Limit           int      `query:"limit" validate:"gte=0,lte=200"`
}

type hotspotParams struct {
	Category   string  `query:"category"`
	MinReports *int     `query:"minReports" validate:"omitempty,gte=2,lte=10000"`
	RadiusKm   *float64 `query:"radiusKm" validate:"omitempty,gte=0.1,lte=10"`
	DateFrom   string   `query:"dateFrom"`
	DateTo     string   `query:"dateTo"`
}

// query maps the optional parameters onto a detector query. Omitted values
// stay zero so the detector applies its defaults.
func (hp hotspotParams) query() usecases.HotspotQuery {
	var q usecases.HotspotQuery
	if hp.MinReports != nil {
		q.MinReports = *hp.MinReports
	}
	if hp.RadiusKm != nil {
		q.RadiusKm = *hp.RadiusKm
	}
	return q
}

type zonesRequest struct {
	Zones []zoneInput `json:"zones" validate:"required,max=100,dive"`
}

type zoneInput struct {
	ID     string        `json:"id" validate:"required,max=64"`
	Name   string        `json:"name" validate:"max=200"`
	Bounds *boundsParams `json:"bounds" validate:"required"`
}

type geoPointInput struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type routeRequest struct {
	Start     *geoPointInput `json:"start" validate:"required"`
	ReportIDs []string       `json:"reportIds" validate:"required,max=500,dive,required,max=64"`
}

// defaultNearbyRadiusKm applies when radiusKm is omitted.
const defaultNearbyRadiusKm = 1.0

// parseQuery decodes and validates query parameters into each target.
func parseQuery(c *fiber.Ctx, targets ...interface{}) error {
	for _, t := range targets {
		if err := c.QueryParser(t); err != nil {
			return fmt.Errorf("invalid query parameters: %w", err)
		}
		if err := validateStruct(t); err != nil {
			return err
		}
	}
	return nil
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, target interface{}) error {
	if err := c.BodyParser(target); err != nil {
		return errors.New("invalid JSON body")
	}
	return validateStruct(target)
}

// ReportsInBoundsHandler returns the reports inside a bounding box, either
// individually (newest first, at most 1000) or clustered per grid cell.
func ReportsInBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			bp boundsParams
			fp filterParams
			rp reportsParams
		)
		if err := parseQuery(c, &bp, &fp, &rp); err != nil {
			return errBadRequest(c, err.Error())
		}
		filter, err := fp.filter()
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		res, err := deps.Maps.Query(c.UserContext(), usecases.BoundsQuery{
			Bounds:      bp.box(),
			Filter:      filter,
			Clustered:   rp.Clustered,
			CellSizeDeg: rp.ClusterRadius,
		})
		if err != nil {
			return failInternal(c, err, "failed to query reports")
		}

		if res.Clustered {
			return c.JSON(fiber.Map{"clusters": res.Clusters})
		}
		return c.JSON(fiber.Map{"reports": res.Reports})
	}
}

// HeatmapHandler returns weighted grid cells inside a bounding box.
func HeatmapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			bp boundsParams
			fp filterParams
			hp heatmapParams
		)
		if err := parseQuery(c, &bp, &fp, &hp); err != nil {
			return errBadRequest(c, err.Error())
		}
		categories, err := parseList(fp.Categories, domain.ParseCategory)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		from, to, err := parseDateRange(fp.DateFrom, fp.DateTo)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		points, err := deps.Maps.Heatmap(c.UserContext(), usecases.HeatmapQuery{
			Bounds:     bp.box(),
			Categories: categories,
			DateFrom:   from,
			DateTo:     to,
			GridDeg:    hp.GridSize,
		})
		if err != nil {
			return failInternal(c, err, "failed to build heatmap")
		}
		return c.JSON(fiber.Map{"points": points})
	}
}

// NearbyReportsHandler returns reports within radiusKm of a point, closest first.
func NearbyReportsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var np nearbyParams
		if err := parseQuery(c, &np); err != nil {
			return errBadRequest(c, err.Error())
		}
		categories, err := parseList(np.Categories, domain.ParseCategory)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius := defaultNearbyRadiusKm
		if np.RadiusKm != nil {
			radius = *np.RadiusKm
		}

		reports, err := deps.Maps.Nearby(c.UserContext(), usecases.NearbyQuery{
			Center:          domain.GeoPoint{Lat: *np.Lat, Lng: *np.Lng},
			RadiusKm:        radius,
			Categories:      categories,
			ExcludeReportID: np.ExcludeReportID,
			Limit:           np.Limit,
		})
		if err != nil {
			return failInternal(c, err, "failed to find nearby reports")
		}
		return c.JSON(fiber.Map{"reports": reports})
	}
}

// HotspotsHandler returns dense same-category clusters, largest first.
func HotspotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var hp hotspotParams
		if err := parseQuery(c, &hp); err != nil {
			return errBadRequest(c, err.Error())
		}
		q := hp.query()
		if hp.Category != "" {
			cat, err := domain.ParseCategory(hp.Category)
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			q.Category = &cat
		}
		from, to, err := parseDateRange(hp.DateFrom, hp.DateTo)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		q.DateFrom, q.DateTo = from, to

		hotspots, err := deps.Hotspots.Detect(c.UserContext(), q)
		if err != nil {
			return failInternal(c, err, "failed to detect hotspots")
		}
		return c.JSON(fiber.Map{"hotspots": hotspots})
	}
}

// ZoneAnalyticsHandler summarises each caller-supplied zone.
func ZoneAnalyticsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req zonesRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}

		zones := make([]domain.Zone, len(req.Zones))
		for i, z := range req.Zones {
			zones[i] = domain.Zone{ID: z.ID, Name: z.Name, Bounds: z.Bounds.box()}
		}

		reports, err := deps.Zones.Analyze(c.UserContext(), zones)
		if err != nil {
			return failInternal(c, err, "failed to analyze zones")
		}
		return c.JSON(fiber.Map{"zones": reports})
	}
}

// OptimizeRouteHandler orders a staff member's assigned reports into a visit plan.
func OptimizeRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeRequest
		if err := parseBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}

		start := domain.GeoPoint{Lat: *req.Start.Lat, Lng: *req.Start.Lng}
		plan, err := deps.Routes.Optimize(c.UserContext(), start, req.ReportIDs)
		if err != nil {
			return failInternal(c, err, "failed to optimize route")
		}
		return c.JSON(plan)
	}
}
