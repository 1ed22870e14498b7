package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/usecases"
)

// buildSchema creates the read-only GraphQL schema over the map services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	reportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Report",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"title":      &graphql.Field{Type: graphql.String},
			"category":   &graphql.Field{Type: graphql.String},
			"priority":   &graphql.Field{Type: graphql.String},
			"status":     &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"createdAt":  &graphql.Field{Type: graphql.DateTime},
			"resolvedAt": &graphql.Field{Type: graphql.DateTime},
			"distanceKm": &graphql.Field{Type: graphql.Float},
		},
	})

	clusterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Cluster",
		Fields: graphql.Fields{
			"location":         &graphql.Field{Type: geoPointType},
			"count":            &graphql.Field{Type: graphql.Int},
			"memberIds":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"categories":       &graphql.Field{Type: graphql.NewList(graphql.String)},
			"statuses":         &graphql.Field{Type: graphql.NewList(graphql.String)},
			"avgPriorityScore": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ReportsInBounds",
		Fields: graphql.Fields{
			"clustered": &graphql.Field{Type: graphql.Boolean},
			"reports":   &graphql.Field{Type: graphql.NewList(reportType)},
			"clusters":  &graphql.Field{Type: graphql.NewList(clusterType)},
		},
	})

	heatmapPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HeatmapPoint",
		Fields: graphql.Fields{
			"location":  &graphql.Field{Type: geoPointType},
			"intensity": &graphql.Field{Type: graphql.Float},
		},
	})

	hotspotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Hotspot",
		Fields: graphql.Fields{
			"center":      &graphql.Field{Type: geoPointType},
			"radius":      &graphql.Field{Type: graphql.Float},
			"reportCount": &graphql.Field{Type: graphql.Int},
			"category":    &graphql.Field{Type: graphql.String},
			"density":     &graphql.Field{Type: graphql.Int},
		},
	})

	boundsArgs := func(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		args := graphql.FieldConfigArgument{
			"north":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			"south":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			"east":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			"west":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			"categories": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
			"dateFrom":   &graphql.ArgumentConfig{Type: graphql.String},
			"dateTo":     &graphql.ArgumentConfig{Type: graphql.String},
		}
		for k, v := range extra {
			args[k] = v
		}
		return args
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"reportsInBounds": &graphql.Field{
				Type:        boundsResultType,
				Description: "Reports inside a bounding box, individually or clustered per grid cell",
				Args: boundsArgs(graphql.FieldConfigArgument{
					"statuses":      &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"priorities":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"clustered":     &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"clusterRadius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					bounds, err := boundsArg(p.Args)
					if err != nil {
						return nil, err
					}
					filter, err := filterArgs(p.Args)
					if err != nil {
						return nil, err
					}
					rp := reportsParams{
						Clustered:     p.Args["clustered"].(bool),
						ClusterRadius: p.Args["clusterRadius"].(float64),
					}
					if err := validateStruct(&rp); err != nil {
						return nil, err
					}
					res, err := deps.Maps.Query(p.Context, usecases.BoundsQuery{
						Bounds:      bounds,
						Filter:      filter,
						Clustered:   rp.Clustered,
						CellSizeDeg: rp.ClusterRadius,
					})
					if err != nil {
						return nil, resolverFailure(p.Context, err, "failed to query reports")
					}
					return map[string]interface{}{
						"clustered": res.Clustered,
						"reports":   res.Reports,
						"clusters":  res.Clusters,
					}, nil
				},
			},
			"heatmap": &graphql.Field{
				Type:        graphql.NewList(heatmapPointType),
				Description: "Priority-weighted density grid inside a bounding box",
				Args: boundsArgs(graphql.FieldConfigArgument{
					"gridSize": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					bounds, err := boundsArg(p.Args)
					if err != nil {
						return nil, err
					}
					filter, err := filterArgs(p.Args)
					if err != nil {
						return nil, err
					}
					hp := heatmapParams{GridSize: p.Args["gridSize"].(float64)}
					if err := validateStruct(&hp); err != nil {
						return nil, err
					}
					points, err := deps.Maps.Heatmap(p.Context, usecases.HeatmapQuery{
						Bounds:     bounds,
						Categories: filter.Categories,
						DateFrom:   filter.DateFrom,
						DateTo:     filter.DateTo,
						GridDeg:    hp.GridSize,
					})
					if err != nil {
						return nil, resolverFailure(p.Context, err, "failed to build heatmap")
					}
					return points, nil
				},
			},
			"nearbyReports": &graphql.Field{
				Type:        graphql.NewList(reportType),
				Description: "Reports within radiusKm of a point, closest first",
				Args: graphql.FieldConfigArgument{
					"lat":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radiusKm":        &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: defaultNearbyRadiusKm},
					"categories":      &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"excludeReportId": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"limit":           &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultNearbyLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lng := p.Args["lng"].(float64)
					radius, ok := p.Args["radiusKm"].(float64)
					if !ok {
						radius = defaultNearbyRadiusKm
					}
					np := nearbyParams{
						Lat:             &lat,
						Lng:             &lng,
						RadiusKm:        &radius,
						ExcludeReportID: p.Args["excludeReportId"].(string),
						Limit:           p.Args["limit"].(int),
					}
					if err := validateStruct(&np); err != nil {
						return nil, err
					}
					categories, err := parseArgList(p.Args, "categories", domain.ParseCategory)
					if err != nil {
						return nil, err
					}
					reports, err := deps.Maps.Nearby(p.Context, usecases.NearbyQuery{
						Center:          domain.GeoPoint{Lat: lat, Lng: lng},
						RadiusKm:        radius,
						Categories:      categories,
						ExcludeReportID: np.ExcludeReportID,
						Limit:           np.Limit,
					})
					if err != nil {
						return nil, resolverFailure(p.Context, err, "failed to find nearby reports")
					}
					return reports, nil
				},
			},
			"hotspots": &graphql.Field{
				Type:        graphql.NewList(hotspotType),
				Description: "Dense same-category report clusters, largest first",
				Args: graphql.FieldConfigArgument{
					"category":   &graphql.ArgumentConfig{Type: graphql.String},
					"minReports": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultHotspotMinReports},
					"radiusKm":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: usecases.DefaultHotspotRadiusKm},
					"dateFrom":   &graphql.ArgumentConfig{Type: graphql.String},
					"dateTo":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					minReports, ok := p.Args["minReports"].(int)
					if !ok {
						minReports = usecases.DefaultHotspotMinReports
					}
					radius, ok := p.Args["radiusKm"].(float64)
					if !ok {
						radius = usecases.DefaultHotspotRadiusKm
					}
					hp := hotspotParams{MinReports: &minReports, RadiusKm: &radius}
					hp.Category, _ = p.Args["category"].(string)
					hp.DateFrom, _ = p.Args["dateFrom"].(string)
					hp.DateTo, _ = p.Args["dateTo"].(string)
					if err := validateStruct(&hp); err != nil {
						return nil, err
					}

					q := hp.query()
					if hp.Category != "" {
						cat, err := domain.ParseCategory(hp.Category)
						if err != nil {
							return nil, err
						}
						q.Category = &cat
					}
					from, to, err := parseDateRange(hp.DateFrom, hp.DateTo)
					if err != nil {
						return nil, err
					}
					q.DateFrom, q.DateTo = from, to

					hotspots, err := deps.Hotspots.Detect(p.Context, q)
					if err != nil {
						return nil, resolverFailure(p.Context, err, "failed to detect hotspots")
					}
					return hotspots, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func boundsArg(args map[string]interface{}) (domain.BoundingBox, error) {
	n, s := args["north"].(float64), args["south"].(float64)
	e, w := args["east"].(float64), args["west"].(float64)
	bp := boundsParams{North: &n, South: &s, East: &e, West: &w}
	if err := validateStruct(&bp); err != nil {
		return domain.BoundingBox{}, err
	}
	return bp.box(), nil
}

func filterArgs(args map[string]interface{}) (domain.ReportFilter, error) {
	var (
		f   domain.ReportFilter
		err error
	)
	if f.Categories, err = parseArgList(args, "categories", domain.ParseCategory); err != nil {
		return f, err
	}
	if f.Statuses, err = parseArgList(args, "statuses", domain.ParseStatus); err != nil {
		return f, err
	}
	if f.Priorities, err = parseArgList(args, "priorities", domain.ParsePriority); err != nil {
		return f, err
	}
	from, _ := args["dateFrom"].(string)
	to, _ := args["dateTo"].(string)
	f.DateFrom, f.DateTo, err = parseDateRange(from, to)
	return f, err
}

// parseArgList parses an optional [String] argument.
func parseArgList[T comparable](args map[string]interface{}, name string, parse func(string) (T, error)) ([]T, error) {
	raw, _ := args[name].([]interface{})
	var out []T
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a list of strings", name)
		}
		v, err := parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// resolverFailure logs err and hides it from the GraphQL response.
func resolverFailure(ctx context.Context, err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("request timed out")
	}
	LoggerFromCtx(ctx).Error(msg, "error", err)
	return errors.New(msg)
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
