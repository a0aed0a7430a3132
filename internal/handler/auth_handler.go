package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
	"freelancehub/pkg/config"
)

type AuthHandler struct {
	auth   *service.AuthService
	jwt    config.JWTConfig
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, jwt config.JWTConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, jwt: jwt, logger: logger}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusCreated, gin.H{
		"message": "registered, check your email to verify the account",
		"user":    u,
	})
}

// Login handles POST /api/auth/login; the token is returned and set as an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	token, u, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwt.CookieName, token, int(h.jwt.TTL.Seconds()), "/", "", h.jwt.CookieSecure, true)
	success(c, http.StatusOK, gin.H{"token": token, "user": u})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwt.CookieName, "", -1, "/", "", h.jwt.CookieSecure, true)
	success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Verify handles POST /api/auth/verify with {"token": "..."} or ?token=
func (h *AuthHandler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		if !bindJSON(c, &req) {
			return
		}
		token = req.Token
	}
	if err := h.auth.VerifyEmail(c.Request.Context(), token); err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "email verified"})
}
