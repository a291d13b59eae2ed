package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Health and connectivity probe",
		Description: "Identifies the service and confirms it is reachable; clients poll this endpoint to distinguish real internet access from a captive or dead link",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
	}
}
