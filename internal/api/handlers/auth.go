package handlers

import (
	"net/http"

	"github.com/remlyo/remlyo/internal/api/dto"
	"github.com/remlyo/remlyo/internal/api/middleware"
	"github.com/remlyo/remlyo/internal/auth"
	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/utils"
	"github.com/remlyo/remlyo/internal/pkg/validator"
)

const refreshTokenCookie = "refreshToken"

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService   user.Service
	plans         plan.Service
	subscriptions subscription.Service
	config        *config.Config
	logger      *logger.Logger
	validator   *validator.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	userService user.Service,
	plans plan.Service,
	subscriptions subscription.Service,
	cfg *config.Config,
	log *logger.Logger,
	val *validator.Validator,
) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		plans:         plans,
		subscriptions: subscriptions,
		config:        cfg,
		logger:        log,
		validator:     val,
	}
}

// Login handles user login
// @Summary User login
// @Description Authenticate user with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Successfully authenticated"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 401 {object} utils.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	u, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"email": req.Email,
		}).Warn("Authentication failed")
		utils.WriteAppError(w, err, "Failed to authenticate")
		return
	}

	h.issueTokens(w, u, http.StatusOK)

	h.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
	}).Info("User logged in")
}

// Register handles user registration
// @Summary User registration
// @Description Register a new user account, optionally starting on a catalog plan
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration details"
// @Success 201 {object} dto.AuthResponse "User successfully registered"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Failure 404 {object} utils.ErrorResponse "Plan not seeded"
// @Failure 409 {object} utils.ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	var starter *plan.Plan
	if req.Plan != "" {
		p, err := h.plans.GetByName(r.Context(), req.Plan)
		if err != nil {
			utils.WriteAppError(w, err, "Failed to load plan")
			return
		}
		starter = p
	}

	var fullName *string
	if req.FullName != "" {
		fullName = &req.FullName
	}

	u, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Username, fullName)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to create user")
		return
	}

	// The account exists either way; a failed start leaves it unsubscribed.
	if starter != nil {
		if _, err := h.subscriptions.Subscribe(r.Context(), u.ID, starter.ID); err != nil {
			h.logger.WithFields(map[string]interface{}{
				"user_id": u.ID,
				"plan":    starter.Name,
			}).ErrorWithErr(err, "Failed to start plan for new user")
		} else {
			u.SubscriptionStatus = user.SubscriptionActive
			u.CurrentPlanID = &starter.ID
		}
	}

	h.issueTokens(w, u, http.StatusCreated)
}

// Logout handles user logout
// @Summary User logout
// @Description Clear the auth cookies
// @Tags Auth
// @Success 200 {object} utils.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, middleware.AccessTokenCookie, "", -1)
	h.setCookie(w, refreshTokenCookie, "", -1)
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the current user's information
// @Summary Get current user
// @Description Get authenticated user's information
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.UserDTO "User information"
// @Failure 401 {object} utils.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	u, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to get user")
		utils.WriteAppError(w, err, "Failed to get user")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.FromUser(u))
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Exchange a refresh token for a new token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.AuthResponse "New tokens generated"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 401 {object} utils.ErrorResponse "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	claims, err := auth.ParseTyped(req.RefreshToken, h.config.Auth.JWTSecret, auth.TokenRefresh)
	if err != nil {
		utils.WriteError(w, errors.Unauthorized("Invalid refresh token"))
		return
	}

	// Reload the user so role changes take effect on refresh.
	u, err := h.userService.GetByID(r.Context(), claims.UserID)
	if err != nil {
		utils.WriteError(w, errors.Unauthorized("Invalid refresh token"))
		return
	}

	h.issueTokens(w, u, http.StatusOK)
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, u *user.User, status int) {
	tokens, err := auth.MintTokens(
		auth.Subject{UserID: u.ID, Email: u.Email, Role: u.Role},
		h.config.Auth.JWTSecret,
		h.config.Auth.AccessTokenExpiry,
		h.config.Auth.RefreshTokenExpiry,
	)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to generate tokens")
		utils.WriteError(w, errors.Internal("Failed to generate tokens", err))
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, tokens.AccessToken, int(h.config.Auth.AccessTokenExpiry.Seconds()))
	h.setCookie(w, refreshTokenCookie, tokens.RefreshToken, int(h.config.Auth.RefreshTokenExpiry.Seconds()))

	utils.WriteSuccess(w, status, dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         dto.FromUser(u),
	})
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   maxAge,
	})
}
