package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/facturaIA/hoadon-extractor/internal/db"
)

// MeResponse is the current user with their processing counts.
type MeResponse struct {
	Success bool          `json:"success"`
	User    *db.User      `json:"user"`
	Stats   *db.UserStats `json:"stats,omitempty"`
}

var (
	loadUser  = db.GetUser
	userStats = db.GetUserStats
)

// MeHandler - GET /api/me
func MeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	claims, err := GetClaimsFromContext(ctx)
	if err != nil {
		sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := loadUser(ctx, claims.UserID)
	switch {
	case errors.Is(err, db.ErrNoDatabase):
		sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	case err != nil:
		sendError(w, http.StatusNotFound, "user not found")
		return
	}

	resp := MeResponse{Success: true, User: user}
	if id, err := uuid.Parse(claims.UserID); err == nil {
		if stats, err := userStats(ctx, id); err == nil {
			resp.Stats = stats
		}
	}
	json.NewEncoder(w).Encode(resp)
}
