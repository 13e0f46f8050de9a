package handlers

import (
	"net/http"
	"strconv"

	"github.com/ApexChef/backlog-chef/app"
	"github.com/ApexChef/backlog-chef/utils"
	"go.uber.org/zap"
)

// ProvidersHandler reports per-provider availability
func ProvidersHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availability := make(map[string]bool)
		for _, name := range deps.Registry.List() {
			availability[name] = deps.Router.IsProviderAvailable(r.Context(), name)
		}
		_ = utils.WriteOK(w, availability)
	}
}

// CostsHandler returns the budget ledger snapshot
func CostsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Router.CostStatistics())
	}
}

// ResetCostsHandler zeroes the budget ledger
func ResetCostsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Router.ResetCostTracking()
		deps.Logger.Info("cost tracking reset via admin endpoint")
		_ = utils.WriteOK(w, nil)
	}
}

// ListRunsHandler returns recent pipeline runs from the run store
func ListRunsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Runs == nil {
			_ = utils.WriteNotFound(w, "run store not configured")
			return
		}

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 200 {
				_ = utils.WriteBadRequest(w, "limit must be an integer between 1 and 200", nil)
				return
			}
			limit = n
		}

		runs, err := deps.Runs.ListRuns(r.Context(), limit)
		if err != nil {
			deps.Logger.Error("failed to list runs", zap.Error(err))
			_ = utils.WriteInternalError(w, "failed to list runs")
			return
		}
		_ = utils.WriteOK(w, runs)
	}
}
