package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/wadjakorntonsri/shorturl/pkg/config"
)

const (
	tokenTTL        = 24 * time.Hour
	userInfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateCookieName = "oauthstate"
)

// AuthHandler signs operators in with Google and issues the admin JWT.
type AuthHandler struct {
	oauthConfig   *oauth2.Config
	jwtSecret     []byte
	frontendURL   string
	allowedEmails []string
	isProduction  bool
	logger        *zap.Logger
}

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		jwtSecret:     []byte(cfg.JWTSecret),
		frontendURL:   cfg.FrontendURL,
		allowedEmails: cfg.AllowedEmails,
		isProduction:  cfg.IsProduction(),
		logger:        zap.L().With(zap.String("component", "AuthHandler")),
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.generateStateOauthCookie(w)
	if err != nil {
		h.logger.Error("Failed to generate oauth state", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	oauthState, err := r.Cookie(stateCookieName)
	if err != nil {
		h.logger.Warn("Callback without oauth state cookie", zap.Error(err))
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	if r.FormValue("state") != oauthState.Value {
		h.logger.Warn("Callback with mismatched oauth state")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid oauth state"})
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		h.logger.Error("Code exchange failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Code exchange failed"})
		return
	}

	client := h.oauthConfig.Client(r.Context(), token)
	response, err := client.Get(userInfoURL)
	if err != nil {
		h.logger.Error("Failed getting user info", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Failed getting user info"})
		return
	}
	defer response.Body.Close()

	var googleUser GoogleUser
	if err := json.NewDecoder(response.Body).Decode(&googleUser); err != nil {
		h.logger.Error("Failed decoding user info", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Failed decoding user info"})
		return
	}

	if !h.allowed(googleUser.Email) {
		h.logger.Warn("Email not in allowlist", zap.String("email", googleUser.Email))
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "Access denied: your email is not in the allowlist"})
		return
	}

	tokenString, expiresAt, err := h.IssueToken(googleUser.Email, time.Now())
	if err != nil {
		h.logger.Error("Failed signing JWT", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    tokenString,
		Expires:  expiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("Login successful", zap.String("email", googleUser.Email))
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// IssueToken signs an admin token for email, valid for 24 hours from now.
func (h *AuthHandler) IssueToken(email string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(tokenTTL)
	claims := &jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	return signed, expiresAt, err
}

// An empty allowlist admits any Google account.
func (h *AuthHandler) allowed(email string) bool {
	return len(h.allowedEmails) == 0 || slices.Contains(h.allowedEmails, email)
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}
