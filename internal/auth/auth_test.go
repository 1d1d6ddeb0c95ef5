package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/hoadon-extractor/internal/db"
)

const testSecret = "0123456789abcdef-test"

func setup(t *testing.T) {
	t.Helper()
	require.NoError(t, SetSecret(testSecret))
}

func TestSetSecret(t *testing.T) {
	assert.Error(t, SetSecret("short"))
	assert.NoError(t, SetSecret(testSecret))
}

func TestTokenRoundTrip(t *testing.T) {
	setup(t)
	token, err := GenerateToken("u1", "a@b.vn", "Nguyễn Văn A", "team-a", "member")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "team-a", claims.Team)
	assert.Equal(t, "Nguyễn Văn A", claims.Name)

	require.NoError(t, SetSecret("another-secret-of-16"))
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	setup(t)
	var seen *Claims
	h := JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := GenerateToken("u1", "a@b.vn", "A", "team-a", "member")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "team-a", seen.Team)
}

func stubUsers(t *testing.T, users map[string]*db.User) {
	t.Helper()
	prevLookup, prevTouch := lookupUser, touchLogin
	t.Cleanup(func() { lookupUser, touchLogin = prevLookup, prevTouch })

	lookupUser = func(_ context.Context, email string) (*db.User, error) {
		if u, ok := users[strings.ToLower(email)]; ok {
			return u, nil
		}
		return nil, db.ErrNotFound
	}
	touchLogin = func(context.Context, uuid.UUID) error { return nil }
}

func login(body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body)))
	return rec
}

func TestLoginHandler(t *testing.T) {
	setup(t)
	hash, err := HashPassword("mat-khau-1")
	require.NoError(t, err)
	user := &db.User{ID: uuid.New(), Email: "a@b.vn", Name: "A", Team: "team-a", Role: "member", PasswordHash: hash}
	stubUsers(t, map[string]*db.User{"a@b.vn": user})

	rec := login(`{"email":"A@b.vn","password":"mat-khau-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, user.ID.String(), resp.UserID)
	assert.Equal(t, "team-a", resp.Team)

	claims, err := ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)

	assert.Equal(t, http.StatusUnauthorized, login(`{"email":"a@b.vn","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(`{"email":"x@b.vn","password":"mat-khau-1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(`{"email":"a@b.vn"}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(`not json`).Code)
}

func TestLoginHandler_NoDatabase(t *testing.T) {
	setup(t)
	prev := lookupUser
	t.Cleanup(func() { lookupUser = prev })
	lookupUser = func(context.Context, string) (*db.User, error) { return nil, db.ErrNoDatabase }

	assert.Equal(t, http.StatusServiceUnavailable, login(`{"email":"a@b.vn","password":"x"}`).Code)
}

func TestMeHandler(t *testing.T) {
	id := uuid.New()
	prevLoad, prevStats := loadUser, userStats
	t.Cleanup(func() { loadUser, userStats = prevLoad, prevStats })
	loadUser = func(_ context.Context, uid string) (*db.User, error) {
		return &db.User{ID: id, Email: "a@b.vn", Name: "A", Team: "team-a"}, nil
	}
	userStats = func(context.Context, uuid.UUID) (*db.UserStats, error) {
		return &db.UserStats{Processed: 12, NeedsReview: 3}, nil
	}

	rec := httptest.NewRecorder()
	MeHandler(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: id.String(), Team: "team-a"}))
	rec = httptest.NewRecorder()
	MeHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "a@b.vn", resp.User.Email)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 12, resp.Stats.Processed)
}
