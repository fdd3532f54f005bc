package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	competitoruc "github.com/business-planner/backend/internal/application/usecase/competitor"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/integration/entrypoint/dto"
)

// CompetitorController handles AI competitor research endpoints.
type CompetitorController struct {
	startScanUseCase   *competitoruc.StartMarketScanUseCase
	scanStatusUseCase  *competitoruc.GetScanStatusUseCase
	deepDiveUseCase    *competitoruc.DeepDiveUseCase
	gapAnalysisUseCase *competitoruc.GapAnalysisUseCase
}

// NewCompetitorController creates a new competitor controller instance.
func NewCompetitorController(
	startScanUseCase *competitoruc.StartMarketScanUseCase,
	scanStatusUseCase *competitoruc.GetScanStatusUseCase,
	deepDiveUseCase *competitoruc.DeepDiveUseCase,
	gapAnalysisUseCase *competitoruc.GapAnalysisUseCase,
) *CompetitorController {
	return &CompetitorController{
		startScanUseCase:   startScanUseCase,
		scanStatusUseCase:  scanStatusUseCase,
		deepDiveUseCase:    deepDiveUseCase,
		gapAnalysisUseCase: gapAnalysisUseCase,
	}
}

// StartScan handles POST /plans/:id/competitors/scan requests.
// The scan runs in the background; poll ScanStatus for the outcome.
func (c *CompetitorController) StartScan(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	output, err := c.startScanUseCase.Execute(ctx.Request.Context(), competitoruc.StartMarketScanInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, dto.StartScanResponse{
		JobID:   output.JobID,
		Message: output.Message,
	})
}

// ScanStatus handles GET /plans/:id/competitors/scan/status requests.
func (c *CompetitorController) ScanStatus(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	status, err := c.scanStatusUseCase.Execute(ctx.Request.Context(), competitoruc.GetScanStatusInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, status)
}

// DeepDive handles POST /plans/:id/competitors/:name/deep-dive requests.
func (c *CompetitorController) DeepDive(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.DeepDiveRequest
	if !bindOptional(ctx, &req) {
		return
	}

	output, err := c.deepDiveUseCase.Execute(ctx.Request.Context(), competitoruc.DeepDiveInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
		Name:   ctx.Param("name"),
		Force:  req.Force,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.DeepDiveResponse{
		PlanResponse: dto.ToPlanResponse(&output.PlanOutput),
		Competitor:   output.Competitor,
		Skipped:      output.Skipped,
	})
}

// DeepDiveAll handles POST /plans/:id/competitors/deep-dive requests.
func (c *CompetitorController) DeepDiveAll(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.DeepDiveRequest
	if !bindOptional(ctx, &req) {
		return
	}

	output, err := c.deepDiveUseCase.ExecuteAll(ctx.Request.Context(), competitoruc.DeepDiveAllInput{
		PlanID: ctx.Param("id"),
		UserID: userID,
		Force:  req.Force,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToDeepDiveAllResponse(output))
}

// GapAnalysis handles POST /plans/:id/competitors/gap-analysis requests.
func (c *CompetitorController) GapAnalysis(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req dto.GapAnalysisRequest
	if !bindOptional(ctx, &req) {
		return
	}

	output, err := c.gapAnalysisUseCase.Execute(ctx.Request.Context(), competitoruc.GapAnalysisInput{
		PlanID:       ctx.Param("id"),
		UserID:       userID,
		AddToRoadmap: req.AddToRoadmap,
	})
	if err != nil {
		respondPlanError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.GapAnalysisResponse{
		PlanResponse: dto.ToPlanResponse(&output.PlanOutput),
		Gaps:         dto.ToGapResponses(output.Gaps),
		RoadmapAdded: output.RoadmapAdded,
	})
}

// bindOptional binds a JSON body when one is present. An empty body keeps
// the zero value.
func bindOptional(ctx *gin.Context, req any) bool {
	err := ctx.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error: "Invalid request body: " + err.Error(),
		Code:  string(domainerror.ErrCodeMissingPlanField),
	})
	return false
}
