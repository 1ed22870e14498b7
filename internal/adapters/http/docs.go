package http

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
)

const defaultOpenAPIPath = "api/openapi.yaml"

// docsPage renders the Swagger UI shell; the bundle loads the document from
// /docs/openapi.yaml at runtime.
var docsPage = fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%s</title>
  <link rel="stylesheet" href="%s/swagger-ui.css">
</head>
<body style="margin:0">
  <div id="docs"></div>
  <script src="%s/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: '/docs/openapi.yaml', dom_id: '#docs', deepLinking: true });
  </script>
</body>
</html>`, "CivicMap map analytics", swaggerDist, swaggerDist)

const swaggerDist = "https://cdn.jsdelivr.net/npm/swagger-ui-dist@5"

func (d *Dependencies) openAPIPath() string {
	if d.OpenAPIPath == "" {
		return defaultOpenAPIPath
	}
	return d.OpenAPIPath
}

// registerDocs mounts the Swagger UI and the OpenAPI document. The document
// is read on each request so an edited file shows up without a restart.
func registerDocs(app *fiber.App, specPath string) {
	docs := app.Group("/docs")
	docs.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(docsPage)
	})
	docs.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		spec, err := os.ReadFile(specPath)
		if err != nil {
			return errNotFound(c, "api document unavailable")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(spec)
	})
}
