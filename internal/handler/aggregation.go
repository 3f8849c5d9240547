package handler

import (
	"context"

	"opsboard/internal/core"
	"opsboard/internal/dto"
	"opsboard/internal/pkg/response"
	"opsboard/internal/service"
	"opsboard/internal/telemetry"
	"opsboard/utils/validate"

	"github.com/gin-gonic/gin"
)

type AggregationHandler struct {
	trace *telemetry.Trace
	jobs  *service.JobService
}

func NewAggregationHandler(trace *telemetry.Trace, jobs *service.JobService) *AggregationHandler {
	return &AggregationHandler{trace: trace, jobs: jobs}
}

// SalesLineItems 觸發 Bork 銷售明細聚合
// POST /aggregations/sales-line-items
func (h *AggregationHandler) SalesLineItems(c *gin.Context) {
	h.runRanged(c, h.jobs.RunSalesLineItems)
}

// LaborHours 觸發 Eitje 工時聚合
// POST /aggregations/labor-hours
func (h *AggregationHandler) LaborHours(c *gin.Context) {
	h.runRanged(c, h.jobs.RunLaborHours)
}

// WorkerProfiles 觸發身分比對
// POST /aggregations/worker-profiles
func (h *AggregationHandler) WorkerProfiles(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	result, err := h.jobs.RunWorkerProfiles(ctx, service.TriggerHTTP)
	end(err)
	if err != nil {
		abortWithResult(c, err, result)
		return
	}
	response.Success(c, result)
}

// Changes 預覽下一次增量聚合會處理的日期區間
// GET /aggregations/changes?source=bork&from=...&to=...
func (h *AggregationHandler) Changes(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	var req dto.ChangesQueryDto
	if cause, respErr := validate.BindQuery(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}
	r, err := req.DateRange()
	if err != nil {
		end(err)
		response.AbortWithError(c, err)
		return
	}

	plans, err := h.jobs.PlanChanges(ctx, core.Source(req.Source), r, req.LocationID)
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, plans)
}

type rangedJob func(ctx context.Context, req service.JobRequest) (*service.Result, error)

func (h *AggregationHandler) runRanged(c *gin.Context, job rangedJob) {
	ctx, _, end := h.trace.WithSpan(c)

	var req dto.AggregationRangeDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}
	r, err := req.DateRange()
	if err != nil {
		end(err)
		response.AbortWithError(c, err)
		return
	}

	result, err := job(ctx, service.JobRequest{
		Range:      r,
		LocationID: req.LocationID,
		Full:       req.Full,
		Trigger:    service.TriggerHTTP,
	})
	end(err)
	if err != nil {
		abortWithResult(c, err, result)
		return
	}
	response.Success(c, result)
}

// abortWithResult 部分門市失敗時，已完成門市的結果仍放在錯誤回應的 data
func abortWithResult(c *gin.Context, err error, result *service.Result) {
	if result == nil {
		response.AbortWithError(c, err)
		return
	}
	response.AbortWithErrorData(c, err, result)
}
