package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	game_entities "github.com/ta-forever/server/pkg/domain/game/entities"
	game_vo "github.com/ta-forever/server/pkg/domain/game/value-objects"
	rating_out "github.com/ta-forever/server/pkg/domain/rating/ports/out"
)

const defaultLeaderboardLimit = 100
const maxLeaderboardLimit = 1000

// LeaderboardController serves read-only leaderboard pages. Writes to the
// leaderboard only ever happen through RatingService's own pipeline, so
// there is no command-side controller for this resource.
type LeaderboardController struct {
	helper *ControllerHelper
	repo   rating_out.RatingRepository
}

func NewLeaderboardController(repo rating_out.RatingRepository) *LeaderboardController {
	return &LeaderboardController{helper: NewControllerHelper(), repo: repo}
}

// ListTop handles GET /leaderboards/{rating_type}?limit=N.
func (c *LeaderboardController) ListTop(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ratingType := game_vo.RatingType(mux.Vars(r)["rating_type"])
		if ratingType == "" {
			ratingType = game_vo.RatingTypeGlobal
		}

		limit := defaultLeaderboardLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.helper.WriteBadRequest(w, r, "limit must be a positive integer")
				return
			}
			limit = parsed
		}
		if limit > maxLeaderboardLimit {
			limit = maxLeaderboardLimit
		}

		entries, err := c.repo.ListTop(r.Context(), ratingType, limit)
		if c.helper.HandleError(w, r, err, "failed to list leaderboard") {
			return
		}
		c.helper.WriteOK(w, r, entries)
	}
}

// GetEntry handles GET /leaderboards/{rating_type}/players/{player_id}.
func (c *LeaderboardController) GetEntry(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		ratingType := game_vo.RatingType(vars["rating_type"])
		playerID, err := strconv.ParseInt(vars["player_id"], 10, 64)
		if err != nil {
			c.helper.WriteBadRequest(w, r, "player_id must be an integer")
			return
		}

		entry, err := c.repo.FindLeaderboardEntry(r.Context(), ratingType, game_entities.PlayerID(playerID))
		if c.helper.HandleError(w, r, err, "failed to find leaderboard entry") {
			return
		}
		if entry == nil {
			WriteNotFound(w, "leaderboard entry")
			return
		}
		c.helper.WriteOK(w, r, entry)
	}
}
