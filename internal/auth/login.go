package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/facturaIA/hoadon-extractor/internal/db"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Team   string `json:"team"`
	Role   string `json:"role"`
}

// Lookups used by the handlers, replaced in tests.
var (
	lookupUser = db.GetUserByEmail
	touchLogin = db.TouchLogin
)

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// LoginHandler handles user authentication
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		sendError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := lookupUser(ctx, req.Email)
	switch {
	case errors.Is(err, db.ErrNoDatabase):
		sendError(w, http.StatusServiceUnavailable, "authentication not available")
		return
	case err != nil:
		if !errors.Is(err, db.ErrNotFound) {
			log.Error().Err(err).Str("component", "auth").Msg("User lookup failed")
		}
		sendError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		sendError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := GenerateToken(user.ID.String(), user.Email, user.Name, user.Team, user.Role)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	// Update last login in background
	go func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := touchLogin(ctx2, user.ID); err != nil {
			log.Warn().Err(err).Str("component", "auth").Msg("Failed to record login")
		}
	}()

	json.NewEncoder(w).Encode(LoginResponse{
		Token:  token,
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
		Team:   user.Team,
		Role:   user.Role,
	})
}

func sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
