package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"stocksim/internal/auth"
	"stocksim/internal/db"
	"stocksim/internal/middleware"
	"stocksim/internal/models"
	"stocksim/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Swapped in tests.
var checkUnknownUser = auth.CheckPasswordUnknownUser

type registerRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondServiceError(w, r, err, "registration_failed")
		return
	}
	if err := validator.ValidateRegistration(req.Username, req.Password, req.Confirmation); err != nil {
		h.respondServiceError(w, r, err, "registration_failed")
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "registration_failed", "failed to secure password")
		return
	}
	userID := uuid.NewString()
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.users.Create(r.Context(), tx, userID, req.Username, passwordHash, h.cfg.StartingCashMinor); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, models.AuditEntry{
			ActorID:    userID,
			Action:     "register",
			EntityType: "user",
			EntityID:   userID,
			Data: map[string]any{
				"ip":         r.RemoteAddr,
				"user_agent": r.UserAgent(),
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "username_taken", "username taken")
			return
		}
		h.respondServiceError(w, r, err, "registration_failed")
		return
	}
	token, expiresAt, ok := h.issueSession(w, userID)
	if !ok {
		return
	}
	h.logger.Info("user registered", zap.String("user_id", userID))
	respondJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
		"user_id":    userID,
		"username":   req.Username,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondServiceError(w, r, err, "login_failed")
		return
	}
	if err := validator.ValidateUsername(req.Username); err != nil {
		h.respondServiceError(w, r, err, "login_failed")
		return
	}
	if req.Password == "" {
		h.respondServiceError(w, r, validator.ErrMissingPassword, "login_failed")
		return
	}
	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			checkUnknownUser(req.Password)
			respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username and/or password")
			return
		}
		h.respondServiceError(w, r, err, "login_failed")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username and/or password")
		return
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.audit.Log(r.Context(), tx, models.AuditEntry{
			ActorID:    user.ID,
			Action:     "login",
			EntityType: "user",
			EntityID:   user.ID,
			Data: map[string]any{
				"ip":         r.RemoteAddr,
				"user_agent": r.UserAgent(),
			},
		})
	}); err != nil {
		h.respondServiceError(w, r, err, "login_failed")
		return
	}
	token, expiresAt, ok := h.issueSession(w, user.ID)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// LoginPage is where unauthenticated browser requests are redirected. It
// describes how to sign in since there is no HTML front end.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"login":    "POST /auth/login",
		"register": "POST /auth/register",
		"fields":   []string{"username", "password"},
	})
}

// Logout revokes the presented token until it would have expired and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if err := h.revoker.Revoke(r.Context(), claims.ID, claims.ExpiresAtTime()); err != nil {
		h.logger.Error("revoke session", zap.String("user_id", claims.UserID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "logout_failed", "unable to end session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusUnauthorized, "unauthorized", "unknown user")
			return
		}
		h.respondServiceError(w, r, err, "load_failed")
		return
	}
	out := map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	}
	moneyJSON(out, "cash", user.Cash)
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) issueSession(w http.ResponseWriter, userID string) (string, time.Time, bool) {
	token, err := auth.GenerateToken(h.cfg.JWTSecret, userID, h.cfg.TokenTTL)
	if err != nil {
		h.logger.Error("generate token", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "session_failed", "failed to generate token")
		return "", time.Time{}, false
	}
	expiresAt := time.Now().Add(h.cfg.TokenTTL).UTC()
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return token, expiresAt, true
}
