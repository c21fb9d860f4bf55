package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"taskplane/internal/audit"
	"taskplane/internal/auth/service"
	"taskplane/internal/server/middleware"
	"taskplane/internal/server/respond"
)

// AuthHandler exposes register, two-step login, refresh, and logout over HTTP.
type AuthHandler struct {
	auth    *service.AuthService
	auditor audit.AuditLogger
}

func NewAuthHandler(auth *service.AuthService, auditor audit.AuditLogger) *AuthHandler {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &AuthHandler{auth: auth, auditor: auditor}
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	OrgID        string    `json:"org_id"`
	Role         string    `json:"role"`
}

func newTokenResponse(res *service.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "bearer",
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
		OrgID:        res.OrgID,
		Role:         res.Role,
	}
}

type registerRequest struct {
	OrgName   string `json:"org_name"`
	Subdomain string `json:"subdomain"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Register bootstraps an organization with its first admin user.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	res, err := h.auth.Register(r.Context(), req.OrgName, req.Subdomain, req.Email, req.Password)
	if err != nil {
		respond.Error(w, err)
		return
	}
	h.auditor.LogEvent(r.Context(), res.OrgID, res.UserID, "register", "organization", req.Subdomain)
	respond.JSON(w, http.StatusCreated, newTokenResponse(res))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	OtpRequired bool   `json:"otp_required"`
	ChallengeID string `json:"challenge_id"`
	Message     string `json:"message"`
}

// Login verifies credentials and issues a login code. It never returns tokens.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respond.BadRequest(w, "email and password are required")
		return
	}
	challengeID, err := h.auth.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r.Context()))
	if err != nil {
		h.auditor.LogEvent(r.Context(), "", "", "login_failed", "session", req.Email)
		respond.Error(w, err)
		return
	}
	h.auditor.LogEvent(r.Context(), "", "", "login_challenge_issued", "session", req.Email)
	respond.JSON(w, http.StatusOK, loginResponse{
		OtpRequired: true,
		ChallengeID: challengeID,
		Message:     "verification code sent",
	})
}

type verifyOTPRequest struct {
	ChallengeID string `json:"challenge_id"`
	Email       string `json:"email"`
	Code        string `json:"code"`
}

// VerifyOTP completes the login code step and returns a token pair. When the
// request arrived on a tenant subdomain the resolved org pins the session.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if req.Code == "" {
		respond.BadRequest(w, "code is required")
		return
	}
	if req.ChallengeID == "" && req.Email == "" {
		respond.BadRequest(w, "challenge_id or email is required")
		return
	}
	var tenantOrgID string
	if oc, ok := middleware.GetTenant(r.Context()); ok {
		tenantOrgID = oc.OrgID
	}
	res, err := h.auth.CompleteOTP(r.Context(), req.Email, req.ChallengeID, req.Code, tenantOrgID)
	if err != nil {
		h.auditor.LogEvent(r.Context(), tenantOrgID, "", "otp_failed", "session", "")
		respond.Error(w, err)
		return
	}
	h.auditor.LogEvent(r.Context(), res.OrgID, res.UserID, "login", "session", "")
	respond.JSON(w, http.StatusOK, newTokenResponse(res))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates the refresh token and returns a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	res, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, newTokenResponse(res))
}

// Logout revokes the whole refresh chain for the presented token. Idempotent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		respond.Error(w, err)
		return
	}
	if claims, ok := middleware.GetClaims(r.Context()); ok {
		h.auditor.LogEvent(r.Context(), claims.OrgID, claims.UserID, "logout", "session", "")
	}
	respond.JSON(w, http.StatusNoContent, nil)
}
