package handler

import (
	"github.com/deppfellow/platform-user/internal/server"
)

// Handlers groups every HTTP handler the router registers.
type Handlers struct {
	Health  *HealthHandler  // Health serves /status.
	OpenAPI *OpenAPIHandler // OpenAPI serves the API documentation page.
	Script  *ScriptHandler  // Script runs registered handler scripts.
}

// NewHandlers builds all handlers around the application container.
func NewHandlers(s *server.Server) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Script:  NewScriptHandler(s),
	}
}
