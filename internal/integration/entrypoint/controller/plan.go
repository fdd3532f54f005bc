package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/planstate"
	planuc "github.com/business-planner/backend/internal/application/usecase/plan"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/integration/entrypoint/dto"
	"github.com/business-planner/backend/internal/integration/entrypoint/middleware"
)

const defaultVersionLimit = 20

// PlanController handles business plan endpoints.
type PlanController struct {
	createUseCase      *planuc.CreatePlanUseCase
	getUseCase         *planuc.GetPlanUseCase
	listUseCase        *planuc.ListPlansUseCase
	updateUseCase      *planuc.UpdatePlanUseCase
	deleteUseCase      *planuc.DeletePlanUseCase
	historyUseCase     *planuc.HistoryUseCase
	recalculateUseCase *planuc.RecalculateProjectionsUseCase
	summaryUseCase     *planuc.ProjectionSummaryUseCase
	versionsUseCase    *planuc.VersionsUseCase
	shareUseCase       *planuc.SharePlanUseCase
}

// NewPlanController creates a new plan controller instance.
func NewPlanController(
	createUseCase *planuc.CreatePlanUseCase,
	getUseCase *planuc.GetPlanUseCase,
	listUseCase *planuc.ListPlansUseCase,
	updateUseCase *planuc.UpdatePlanUseCase,
	deleteUseCase *planuc.DeletePlanUseCase,
	historyUseCase *planuc.HistoryUseCase,
	recalculateUseCase *planuc.RecalculateProjectionsUseCase,
	summaryUseCase *planuc.ProjectionSummaryUseCase,
	versionsUseCase *planuc.VersionsUseCase,
	shareUseCase *planuc.SharePlanUseCase,
) *PlanController {
	return &PlanController{
		createUseCase:      createUseCase,
		getUseCase:         getUseCase,
		listUseCase:        listUseCase,
		updateUseCase:      updateUseCase,
		deleteUseCase:      deleteUseCase,
		historyUseCase:     historyUseCase,
		recalculateUseCase: recalculateUseCase,
		summaryUseCase:     summaryUseCase,
		versionsUseCase:    versionsUseCase,
		shareUseCase:       shareUseCase,
	}
}

// List handles GET /plans requests.
func (c *PlanController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	output, err := c.listUseCase.Execute(ctx.Request.Context(), planuc.ListPlansInput{UserID: userID})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanListResponse(output.Plans))
}

// Create handles POST /plans requests.
func (c *PlanController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.CreatePlanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  string(domainerror.ErrCodeMissingPlanField),
		})
		return
	}

	input := planuc.CreatePlanInput{
		UserID: userID,
		Title:  req.Title,
	}
	if len(req.Document) > 0 && string(req.Document) != "null" {
		var doc entity.BusinessPlanDocument
		if err := json.Unmarshal(req.Document, &doc); err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error: "Invalid plan document: " + err.Error(),
				Code:  string(domainerror.ErrCodeMissingPlanField),
			})
			return
		}
		input.Document = &doc
	}

	output, err := c.createUseCase.Execute(ctx.Request.Context(), input)
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.CreatePlanResponse{
		Plan:     output.Plan,
		Warnings: output.Warnings,
	})
}

// Get handles GET /plans/:id requests.
func (c *PlanController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	output, err := c.getUseCase.Execute(ctx.Request.Context(), planuc.GetPlanInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanResponse(output))
}

// Update handles PUT /plans/:id requests. The body is the whole document.
func (c *PlanController) Update(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var doc entity.BusinessPlanDocument
	if err := ctx.ShouldBindJSON(&doc); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid plan document: " + err.Error(),
			Code:  string(domainerror.ErrCodeMissingPlanField),
		})
		return
	}

	output, err := c.updateUseCase.Execute(ctx.Request.Context(), planuc.UpdatePlanInput{
		PlanID:   ctx.Param("id"),
		UserID:   userID,
		Document: &doc,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanResponse(output))
}

// Delete handles DELETE /plans/:id requests.
func (c *PlanController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	err := c.deleteUseCase.Execute(ctx.Request.Context(), planuc.DeletePlanInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// State handles GET /plans/:id/state requests.
func (c *PlanController) State(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	state, err := c.historyUseCase.State(ctx.Request.Context(), planuc.HistoryInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanStateResponse(*state))
}

// Undo handles POST /plans/:id/undo requests.
func (c *PlanController) Undo(ctx *gin.Context) {
	c.history(ctx, c.historyUseCase.Undo)
}

// Redo handles POST /plans/:id/redo requests.
func (c *PlanController) Redo(ctx *gin.Context) {
	c.history(ctx, c.historyUseCase.Redo)
}

func (c *PlanController) history(ctx *gin.Context, op func(context.Context, planuc.HistoryInput) (*planuc.HistoryOutput, error)) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	output, err := op(ctx.Request.Context(), planuc.HistoryInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toHistoryResponse(output))
}

// Shortcut handles POST /plans/:id/shortcut requests carrying a key press.
func (c *PlanController) Shortcut(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var event planstate.KeyEvent
	if err := ctx.ShouldBindJSON(&event); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  string(domainerror.ErrCodeMissingPlanField),
		})
		return
	}

	output, err := c.historyUseCase.Shortcut(ctx.Request.Context(), planuc.ShortcutInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
		Event:  event,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toHistoryResponse(output))
}

// Flush handles POST /plans/:id/flush requests.
func (c *PlanController) Flush(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	state, err := c.historyUseCase.Flush(ctx.Request.Context(), planuc.HistoryInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanStateResponse(*state))
}

// ChangeClientCount handles POST /plans/:id/projections/client-count requests.
func (c *PlanController) ChangeClientCount(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.ClientCountRequest
	if !bindPlanRequest(ctx, &req) {
		return
	}

	output, err := c.recalculateUseCase.ChangeClientCount(ctx.Request.Context(), planuc.ChangeClientCountInput{
		PlanID:      ctx.Param("id"),
		UserID:      userID,
		Schedule:    scheduleOrDefault(req.Schedule),
		Index:       *req.Index,
		ClientCount: *req.ClientCount,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanResponse(output))
}

// ChangeMargin handles POST /plans/:id/projections/margin requests.
func (c *PlanController) ChangeMargin(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.MarginRequest
	if !bindPlanRequest(ctx, &req) {
		return
	}

	output, err := c.recalculateUseCase.ChangeMargin(ctx.Request.Context(), planuc.ChangeMarginInput{
		PlanID:        ctx.Param("id"),
		UserID:        userID,
		Schedule:      scheduleOrDefault(req.Schedule),
		Index:         *req.Index,
		MarginPercent: *req.MarginPercent,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanResponse(output))
}

// RebuildSchedule handles POST /plans/:id/projections/schedule requests.
func (c *PlanController) RebuildSchedule(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.ScheduleRequest
	if !bindPlanRequest(ctx, &req) {
		return
	}

	output, err := c.recalculateUseCase.RebuildSchedule(ctx.Request.Context(), planuc.RebuildScheduleInput{
		PlanID:       ctx.Param("id"),
		UserID:       userID,
		Schedule:     scheduleOrDefault(req.Schedule),
		StartClients: req.StartClients,
		EndClients:   req.EndClients,
		Periods:      req.Periods,
		Params:       req.Params.ToScheduleParams(),
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanResponse(output))
}

// ProjectionSummary handles GET /plans/:id/projections/summary requests.
func (c *PlanController) ProjectionSummary(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	schedule := ctx.DefaultQuery("schedule", string(planuc.ScheduleMonthly))
	if schedule != string(planuc.ScheduleMonthly) && schedule != string(planuc.ScheduleYearly) {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "schedule must be monthly or yearly",
			Code:  string(domainerror.ErrCodeInvalidEnum),
		})
		return
	}

	summary, err := c.summaryUseCase.Execute(ctx.Request.Context(), planuc.ProjectionSummaryInput{
		PlanID:   ctx.Param("id"),
		UserID:   userID,
		Schedule: planuc.Schedule(schedule),
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToProjectionSummaryResponse(schedule, summary))
}

// ListVersions handles GET /plans/:id/versions requests.
func (c *PlanController) ListVersions(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	limit := defaultVersionLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  string(domainerror.ErrCodeInvalidNumber),
			})
			return
		}
		limit = parsed
	}

	versions, err := c.versionsUseCase.List(ctx.Request.Context(), planuc.ListVersionsInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToVersionListResponse(versions))
}

// RestoreVersion handles POST /plans/:id/versions/:versionId/restore requests.
func (c *PlanController) RestoreVersion(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	versionID, err := uuid.Parse(ctx.Param("versionId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid version ID format",
			Code:  string(domainerror.ErrCodePlanVersionNotFound),
		})
		return
	}

	output, err := c.versionsUseCase.Restore(ctx.Request.Context(), planuc.RestoreVersionInput{
		PlanID:    ctx.Param("id"),
		UserID:    userID,
		VersionID: versionID,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToPlanResponse(output))
}

// Share handles POST /plans/:id/share requests.
func (c *PlanController) Share(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.SharePlanRequest
	if !bindPlanRequest(ctx, &req) {
		return
	}

	err := c.shareUseCase.Execute(ctx.Request.Context(), planuc.SharePlanInput{
		PlanID:         ctx.Param("id"),
		UserID:         userID,
		RecipientEmail: req.RecipientEmail,
		RecipientName:  req.RecipientName,
		Message:        req.Message,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, dto.MessageResponse{
		Message: "Plan summary queued for delivery",
	})
}

func toHistoryResponse(out *planuc.HistoryOutput) dto.HistoryResponse {
	return dto.HistoryResponse{
		PlanResponse: dto.ToPlanResponse(&out.PlanOutput),
		Applied:      out.Applied,
		Shortcut:     out.Shortcut,
	}
}

func scheduleOrDefault(s string) planuc.Schedule {
	if s == string(planuc.ScheduleYearly) {
		return planuc.ScheduleYearly
	}
	return planuc.ScheduleMonthly
}

// requireUser reads the authenticated user or writes a 401.
func requireUser(ctx *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return uuid.Nil, false
	}
	return userID, true
}

// bindPlanRequest binds a JSON body or writes a 400.
func bindPlanRequest(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  string(domainerror.ErrCodeMissingPlanField),
		})
		return false
	}
	return true
}

// respondPlanError maps plan errors to HTTP responses.
func respondPlanError(ctx *gin.Context, err error) {
	var planErr *domainerror.PlanError
	if errors.As(err, &planErr) {
		ctx.JSON(statusForPlanError(planErr.Code), dto.ErrorResponse{
			Error: planErr.Message,
			Code:  string(planErr.Code),
		})
		return
	}

	slog.Error("Unhandled plan error", "error", err, "path", ctx.FullPath())
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error: "An internal error occurred",
	})
}

// statusForPlanError maps plan error codes to HTTP status codes.
func statusForPlanError(code domainerror.PlanErrorCode) int {
	switch code {
	case domainerror.ErrCodePlanNotFound,
		domainerror.ErrCodePlanVersionNotFound,
		domainerror.ErrCodeCompetitorNotFound:
		return http.StatusNotFound
	case domainerror.ErrCodeUnauthorizedPlanAccess:
		return http.StatusForbidden
	case domainerror.ErrCodeInvalidNumber,
		domainerror.ErrCodeNegativeValue,
		domainerror.ErrCodeInvertedRange,
		domainerror.ErrCodeInvalidRowIndex,
		domainerror.ErrCodeInvalidEnum,
		domainerror.ErrCodeMissingPlanField:
		return http.StatusBadRequest
	case domainerror.ErrCodeScanInProgress:
		return http.StatusConflict
	case domainerror.ErrCodeAIUnavailable:
		return http.StatusServiceUnavailable
	case domainerror.ErrCodeAnalysisFailed,
		domainerror.ErrCodeShareEmailFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
