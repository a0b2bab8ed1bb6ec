// Package http provides http transport for activity reporting
package http

import (
	stdhttp "net/http"

	"agentpulse/internal/modkit/httpkit"
	"agentpulse/internal/services/api/activity/domain"
	svc "agentpulse/internal/services/api/activity/service"
)

// Register mounts activity endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// hourly rows for a local date range
	httpkit.PostJSON[domain.RowsInput](r, "/rows", h.rows)

	// run the engine over a range
	httpkit.PostJSON[domain.AggregateInput](r, "/aggregate", h.aggregate)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /activity/rows Activity activityRows
// @Summary Hourly presence and call rows
// @Tags Activity
// @Accept json
// @Produce json
// @Param payload body domain.RowsInput true "Query"
// @Success 200 {array} domain.Row "ok"
// @Router /activity/rows [post]
func (h *handlers) rows(r *stdhttp.Request, in domain.RowsInput) (any, error) {
	return h.svc.Rows(r.Context(), in)
}

// swagger:route POST /activity/aggregate Activity activityAggregate
// @Summary Aggregate a range of local hours
// @Description Runs inline and returns the run summary. 409 while another run holds the guard.
// @Tags Activity
// @Accept json
// @Produce json
// @Param payload body domain.AggregateInput true "Range"
// @Success 200 {object} domain.Summary "ok"
// @Failure 409 {object} map[string]any "run in flight"
// @Failure 422 {object} map[string]any "invalid range"
// @Router /activity/aggregate [post]
func (h *handlers) aggregate(r *stdhttp.Request, in domain.AggregateInput) (any, error) {
	return h.svc.Aggregate(r.Context(), in)
}
