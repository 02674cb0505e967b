package apiserver

import (
	"embed"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

//go:embed openapi.yaml
var openAPISpec embed.FS

// OpenAPIHandler serves the API description and a Swagger UI page
type OpenAPIHandler struct {
	logger *zap.Logger
	spec   []byte
}

// NewOpenAPIHandler creates a new OpenAPI handler
func NewOpenAPIHandler(logger *zap.Logger) *OpenAPIHandler {
	specData, err := openAPISpec.ReadFile("openapi.yaml")
	if err != nil {
		logger.Error("Failed to read OpenAPI spec", zap.Error(err))
		specData = []byte("# OpenAPI spec not available\n")
	}
	return &OpenAPIHandler{logger: logger, spec: specData}
}

// ServeOpenAPISpec serves the OpenAPI document in YAML format
func (h *OpenAPIHandler) ServeOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.spec)
}

// ServeSwaggerUI serves a Swagger UI page pointing at the YAML document
func (h *OpenAPIHandler) ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	specURL := fmt.Sprintf("%s://%s/api/v1/openapi.yaml", getScheme(r), r.Host)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Meal Sync API</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({ url: '%s', dom_id: '#swagger-ui', deepLinking: true });
        };
    </script>
</body>
</html>`, specURL)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
