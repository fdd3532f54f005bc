// Package controller holds the gin handlers. Each controller turns requests
// into use case inputs and domain errors into JSON responses.
package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/business-planner/backend/internal/application/usecase/auth"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/integration/entrypoint/dto"
)

// AuthController serves the /auth routes.
type AuthController struct {
	register       *auth.RegisterUserUseCase
	login          *auth.LoginUserUseCase
	refresh        *auth.RefreshTokenUseCase
	logout         *auth.LogoutUserUseCase
	forgotPassword *auth.ForgotPasswordUseCase
	resetPassword  *auth.ResetPasswordUseCase
}

func NewAuthController(
	register *auth.RegisterUserUseCase,
	login *auth.LoginUserUseCase,
	refresh *auth.RefreshTokenUseCase,
	logout *auth.LogoutUserUseCase,
	forgotPassword *auth.ForgotPasswordUseCase,
	resetPassword *auth.ResetPasswordUseCase,
) *AuthController {
	return &AuthController{register, login, refresh, logout, forgotPassword, resetPassword}
}

// Register handles POST /auth/register.
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !bindAuthRequest(ctx, &req, domainerror.ErrCodeMissingFields) {
		return
	}
	session, err := c.register.Execute(ctx.Request.Context(), auth.RegisterUserInput{
		Email:         req.Email,
		Name:          req.Name,
		Password:      req.Password,
		TermsAccepted: req.TermsAccepted,
	})
	respondSession(ctx, http.StatusCreated, session, err)
}

// Login handles POST /auth/login.
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !bindAuthRequest(ctx, &req, domainerror.ErrCodeMissingFields) {
		return
	}
	session, err := c.login.Execute(ctx.Request.Context(), auth.LoginUserInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	respondSession(ctx, http.StatusOK, session, err)
}

// RefreshToken handles POST /auth/refresh. The presented token is revoked.
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindAuthRequest(ctx, &req, domainerror.ErrCodeMissingToken) {
		return
	}
	out, err := c.refresh.Execute(ctx.Request.Context(), auth.RefreshTokenInput{RefreshToken: req.RefreshToken})
	if err != nil {
		respondAuthError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.TokenResponse{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken})
}

// Logout handles POST /auth/logout. It answers 200 even for a missing or
// unknown token.
func (c *AuthController) Logout(ctx *gin.Context) {
	var req dto.LogoutRequest
	_ = ctx.ShouldBindJSON(&req)

	out, _ := c.logout.Execute(ctx.Request.Context(), auth.LogoutUserInput{RefreshToken: req.RefreshToken})
	message := "Successfully logged out"
	if out != nil {
		message = out.Message
	}
	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: message})
}

// ForgotPassword handles POST /auth/forgot-password.
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindAuthRequest(ctx, &req, domainerror.ErrCodeInvalidEmail) {
		return
	}
	out, err := c.forgotPassword.Execute(ctx.Request.Context(), auth.ForgotPasswordInput{Email: req.Email})
	if err != nil {
		respondAuthError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: out.Message})
}

// ResetPassword handles POST /auth/reset-password.
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindAuthRequest(ctx, &req, domainerror.ErrCodeMissingFields) {
		return
	}
	out, err := c.resetPassword.Execute(ctx.Request.Context(), auth.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		respondAuthError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: out.Message})
}

func respondSession(ctx *gin.Context, status int, session *auth.SessionOutput, err error) {
	if err != nil {
		respondAuthError(ctx, err)
		return
	}
	ctx.JSON(status, dto.AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         dto.ToUserResponse(session.User),
	})
}

// bindAuthRequest answers 400 with code when the body does not bind.
func bindAuthRequest(ctx *gin.Context, req any, code domainerror.AuthErrorCode) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Code: string(code)})
		return false
	}
	return true
}

var authErrorStatus = map[domainerror.AuthErrorCode]int{
	domainerror.ErrCodeEmailExists:         http.StatusConflict,
	domainerror.ErrCodeTermsNotAccepted:    http.StatusBadRequest,
	domainerror.ErrCodeWeakPassword:        http.StatusBadRequest,
	domainerror.ErrCodeInvalidEmail:        http.StatusBadRequest,
	domainerror.ErrCodeMissingFields:       http.StatusBadRequest,
	domainerror.ErrCodeInvalidResetToken:   http.StatusBadRequest,
	domainerror.ErrCodeExpiredResetToken:   http.StatusBadRequest,
	domainerror.ErrCodeInvalidConfirmation: http.StatusBadRequest,
	domainerror.ErrCodeInvalidCredentials:  http.StatusUnauthorized,
	domainerror.ErrCodeUserNotFound:        http.StatusUnauthorized,
	domainerror.ErrCodeInvalidToken:        http.StatusUnauthorized,
	domainerror.ErrCodeExpiredToken:        http.StatusUnauthorized,
	domainerror.ErrCodeMissingToken:        http.StatusUnauthorized,
	domainerror.ErrCodeRateLimited:         http.StatusTooManyRequests,
}

// respondAuthError writes an AuthError as JSON. Anything else is logged and
// hidden behind a generic 500.
func respondAuthError(ctx *gin.Context, err error) {
	var authErr *domainerror.AuthError
	if !errors.As(err, &authErr) {
		slog.Error("Unhandled auth error", "error", err, "path", ctx.FullPath())
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "An internal error occurred"})
		return
	}

	status, ok := authErrorStatus[authErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	ctx.JSON(status, dto.ErrorResponse{Error: authErr.Message, Code: string(authErr.Code)})
}
