package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/business-planner/backend/internal/application/usecase/auth"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/integration/entrypoint/dto"
)

// UserController handles the signed-in user's account.
type UserController struct {
	deleteAccount *auth.DeleteAccountUseCase
}

func NewUserController(deleteAccount *auth.DeleteAccountUseCase) *UserController {
	return &UserController{deleteAccount: deleteAccount}
}

// DeleteAccount handles DELETE /users/me requests. The account's plans are
// removed with it.
func (c *UserController) DeleteAccount(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.DeleteAccountRequest
	if !bindAuthRequest(ctx, &req, domainerror.ErrCodeMissingFields) {
		return
	}

	_, err := c.deleteAccount.Execute(ctx.Request.Context(), auth.DeleteAccountInput{
		UserID:       userID,
		Password:     req.Password,
		Confirmation: req.Confirmation,
	})
	if err != nil {
		var authErr *domainerror.AuthError
		if errors.As(err, &authErr) && authErr.Code == domainerror.ErrCodeUserNotFound {
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "User not found", Code: string(authErr.Code)})
			return
		}
		respondAuthError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
