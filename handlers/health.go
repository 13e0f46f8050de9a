package handlers

import (
	"net/http"

	"github.com/ApexChef/backlog-chef/app"
	"github.com/ApexChef/backlog-chef/utils"
	"go.uber.org/zap"
)

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck performs a more thorough readiness check
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		checks := map[string]string{}

		if deps.Registry.Count() == 0 {
			status = "not_ready"
			checks["providers"] = "none_configured"
		} else {
			checks["providers"] = "configured"
		}

		if deps.DB != nil {
			if err := deps.DB.HealthCheck(r.Context()); err != nil {
				status = "not_ready"
				checks["database"] = "unhealthy"
				deps.Logger.Error("database health check failed", zap.Error(err))
			} else {
				checks["database"] = "healthy"
			}
		}

		code := http.StatusOK
		if status != "ready" {
			code = http.StatusServiceUnavailable
		}
		_ = utils.WriteJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"version":     "0.1.0",
			"environment": deps.Config.Environment,
			"providers":   deps.Registry.List(),
		})
	}
}
