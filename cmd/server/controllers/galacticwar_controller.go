package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	galacticwar_out "github.com/ta-forever/server/pkg/domain/galacticwar/ports/out"
	galacticwar_services "github.com/ta-forever/server/pkg/domain/galacticwar/services"
)

// GalacticWarController exposes the live campaign state for read, scenario
// lookup/listing against storage, and a rotation command gated behind
// admin authentication at the router layer.
type GalacticWarController struct {
	helper  *ControllerHelper
	service *galacticwar_services.GalacticWarService
	repo    galacticwar_out.ScenarioRepository
}

func NewGalacticWarController(service *galacticwar_services.GalacticWarService, repo galacticwar_out.ScenarioRepository) *GalacticWarController {
	return &GalacticWarController{helper: NewControllerHelper(), service: service, repo: repo}
}

// GetState handles GET /galacticwar/state, the currently-live campaign.
func (c *GalacticWarController) GetState(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := c.service.State()
		if state == nil {
			WriteNotFound(w, "galactic war scenario")
			return
		}
		c.helper.WriteOK(w, r, state)
	}
}

// ListScenarios handles GET /galacticwar/scenarios.
func (c *GalacticWarController) ListScenarios(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := c.repo.ListAvailableScenarios(r.Context())
		if c.helper.HandleError(w, r, err, "failed to list scenarios") {
			return
		}
		c.helper.WriteOK(w, r, names)
	}
}

// GetScenario handles GET /galacticwar/scenarios/{scenario_id}, returning a
// scenario's persisted state independent of the live campaign (e.g. a
// rotated-out scenario's final standings).
func (c *GalacticWarController) GetScenario(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["scenario_id"]
		if name == "" {
			c.helper.WriteBadRequest(w, r, "scenario_id is required")
			return
		}
		state, err := c.repo.Load(r.Context(), name)
		if c.helper.HandleError(w, r, err, "failed to load scenario") {
			return
		}
		c.helper.WriteOK(w, r, state)
	}
}

type rotateScenarioRequest struct {
	ScenarioName string `json:"scenario_name"`
}

// RotateScenario handles POST /galacticwar/scenarios/rotate: saves the
// outgoing scenario's final state and swaps the live campaign to the named
// scenario. Restricted to admins by the router's auth middleware.
func (c *GalacticWarController) RotateScenario(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rotateScenarioRequest
		if err := c.helper.DecodeJSONRequest(w, r, &req); err != nil {
			return
		}
		if req.ScenarioName == "" {
			c.helper.WriteBadRequest(w, r, "scenario_name is required")
			return
		}
		if err := c.service.RotateScenario(r.Context(), req.ScenarioName); c.helper.HandleError(w, r, err, "failed to rotate scenario") {
			return
		}
		c.helper.WriteOK(w, r, map[string]string{"scenario_name": req.ScenarioName})
	}
}
