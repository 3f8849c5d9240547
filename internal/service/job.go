package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsboard/internal/aggregation/changes"
	"opsboard/internal/core"
	fluentdModel "opsboard/internal/database/fluentd/model"
	redisRepository "opsboard/internal/database/redis/repository"
	cErr "opsboard/internal/pkg/error"
	"opsboard/internal/rawstore"
	"opsboard/internal/telemetry"

	"go.uber.org/zap"
)

// AggregationLocker 每個 (kind, location) 的互斥鎖
type AggregationLocker interface {
	Acquire(ctx context.Context, kind core.AggregationKind, locationID string) (func(context.Context) error, error)
}

type AuditLogger interface {
	LogAggregationRun(ctx context.Context, record fluentdModel.AggregationRunLog) error
	LogIdentityDuplicate(ctx context.Context, record fluentdModel.IdentityDuplicateLog) error
	LogIdentityUnmatched(ctx context.Context, record fluentdModel.IdentityUnmatchedLog) error
}

// Trigger 誰觸發了這次聚合，寫入稽核紀錄
type Trigger string

const (
	TriggerHTTP Trigger = "http"
	TriggerCron Trigger = "cron"
	TriggerCLI  Trigger = "cli"
)

type JobRequest struct {
	Range      core.DateRange
	LocationID string
	Full       bool
	Trigger    Trigger
}

// JobService 觸發介面：HTTP、cron 與 CLI 共用。負責加鎖、錯誤轉換、指標與稽核紀錄。
type JobService struct {
	logger      *zap.Logger
	metric      *telemetry.Metric
	aggregation *AggregationService
	locks       AggregationLocker
	audit       AuditLogger
}

func NewJobService(logger *zap.Logger, metric *telemetry.Metric, aggregation *AggregationService, locks AggregationLocker, audit AuditLogger) *JobService {
	return &JobService{logger: logger, metric: metric, aggregation: aggregation, locks: locks, audit: audit}
}

type rangedPass func(ctx context.Context, r core.DateRange, locationID string, opts ...RunOption) (*Result, error)

func (s *JobService) RunSalesLineItems(ctx context.Context, req JobRequest) (*Result, error) {
	return s.runRanged(ctx, core.KindSalesLineItems, req, s.aggregation.AggregateSalesLineItems)
}

func (s *JobService) RunLaborHours(ctx context.Context, req JobRequest) (*Result, error) {
	return s.runRanged(ctx, core.KindLaborHours, req, s.aggregation.AggregateLaborHours)
}

func (s *JobService) RunWorkerProfiles(ctx context.Context, trigger Trigger) (*Result, error) {
	result, err := s.aggregation.ReconcileWorkerProfiles(ctx, WithLocationGuard(s.lockGuard))
	s.finish(ctx, JobRequest{Trigger: trigger}, result, err)
	if result != nil {
		s.auditIdentity(ctx, result)
	}
	return result, toAppError(err)
}

// Locations cron 用來拆分每個門市的工作
func (s *JobService) Locations(ctx context.Context, kind core.AggregationKind, r core.DateRange) ([]string, error) {
	locations, err := s.aggregation.Locations(ctx, kind, r)
	return locations, toAppError(err)
}

func (s *JobService) PlanChanges(ctx context.Context, source core.Source, r core.DateRange, locationID string) ([]changes.Plan, error) {
	plans, err := s.aggregation.PlanChanges(ctx, source, r, locationID)
	return plans, toAppError(err)
}

func (s *JobService) runRanged(ctx context.Context, kind core.AggregationKind, req JobRequest, pass rangedPass) (*Result, error) {
	result, err := pass(ctx, req.Range, req.LocationID, WithFullRefresh(req.Full), WithLocationGuard(s.lockGuard))
	s.finish(ctx, req, result, err)
	return result, toAppError(err)
}

func (s *JobService) lockGuard(ctx context.Context, kind core.AggregationKind, locationID string) (func(context.Context) error, error) {
	if s.locks == nil {
		return nil, nil
	}
	release, err := s.locks.Acquire(ctx, kind, locationID)
	if errors.Is(err, redisRepository.ErrLockHeld) {
		return nil, cErr.AggregationInProgress(fmt.Sprintf("%s aggregation already running for location %q", kind, locationID)).Wrap(err)
	}
	if err != nil {
		return nil, cErr.ServiceUnavailable("aggregation lock unavailable").Wrap(err)
	}
	return release, nil
}

func runStatus(err error) core.RunStatus {
	var appErr *cErr.Error
	switch {
	case err == nil:
		return core.RunStatusSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return core.RunStatusCancelled
	case errors.As(err, &appErr) && appErr.ErrorCode() == cErr.AGGREGATION_IN_PROGRESS:
		return core.RunStatusSkipped
	}
	return core.RunStatusFailed
}

func (s *JobService) finish(ctx context.Context, req JobRequest, result *Result, err error) {
	if result == nil {
		return
	}
	status := runStatus(err)
	elapsed := result.FinishedAt.Sub(result.StartedAt)
	s.metric.ObserveRun(result.Kind, result.Mode, status, result.RecordsAggregated, len(result.Warnings), elapsed)

	fields := []zap.Field{
		zap.String("run_id", result.RunID),
		zap.String("kind", string(result.Kind)),
		zap.String("mode", string(result.Mode)),
		zap.String("status", string(status)),
		zap.String("trigger", string(req.Trigger)),
		zap.Int("records", result.RecordsAggregated),
		zap.Int("skipped", result.Skipped),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("errors", result.Errors),
		zap.Duration("elapsed", elapsed),
	}
	switch status {
	case core.RunStatusSucceeded:
		s.logger.Info("aggregation finished", fields...)
	case core.RunStatusSkipped, core.RunStatusCancelled:
		s.logger.Warn("aggregation not completed", append(fields, zap.Error(err))...)
	default:
		s.logger.Error("aggregation failed", append(fields, zap.Error(err))...)
	}

	if s.audit == nil {
		return
	}
	auditCtx := context.WithoutCancel(ctx)
	base := fluentdModel.AggregationRunLog{
		RunID:      result.RunID,
		Kind:       string(result.Kind),
		Mode:       string(result.Mode),
		Status:     string(status),
		Trigger:    string(req.Trigger),
		DurationMs: elapsed.Milliseconds(),
		StartedAt:  result.StartedAt.Format(time.RFC3339),
	}
	if !req.Range.From.IsZero() {
		base.From, base.To = req.Range.FromKey(), req.Range.ToKey()
	}

	records := make([]fluentdModel.AggregationRunLog, 0, len(result.Locations)+1)
	for _, loc := range result.Locations {
		record := base
		record.LocationID = loc.LocationID
		record.Mode = string(loc.Mode)
		record.Ranges = loc.Ranges
		record.Records = loc.Records
		record.Skipped = loc.Skipped
		record.Warnings = loc.Warnings
		if loc.Error != "" {
			record.Status = string(core.RunStatusFailed)
			record.Errors = 1
			record.Error = loc.Error
		} else if status == core.RunStatusFailed {
			record.Status = string(core.RunStatusSucceeded)
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		record := base
		record.LocationID = req.LocationID
		record.Records = result.RecordsAggregated
		record.Skipped = result.Skipped
		record.Warnings = len(result.Warnings)
		record.Errors = result.Errors
		if err != nil {
			record.Error = err.Error()
		}
		records = append(records, record)
	}
	for _, record := range records {
		if auditErr := s.audit.LogAggregationRun(auditCtx, record); auditErr != nil {
			s.logger.Warn("audit aggregation run failed", zap.String("run_id", result.RunID), zap.Error(auditErr))
		}
	}
}

func (s *JobService) auditIdentity(ctx context.Context, result *Result) {
	s.metric.ObserveDuplicates(len(result.Duplicates))
	if s.audit == nil {
		return
	}
	auditCtx := context.WithoutCancel(ctx)
	for _, dup := range result.Duplicates {
		err := s.audit.LogIdentityDuplicate(auditCtx, fluentdModel.IdentityDuplicateLog{
			RunID:       result.RunID,
			EitjeUserID: dup.EitjeUserID,
			KeptID:      dup.KeptProfileID,
			DroppedIDs:  dup.DroppedProfileIDs,
		})
		if err != nil {
			s.logger.Warn("audit identity duplicate failed", zap.String("eitje_user_id", dup.EitjeUserID), zap.Error(err))
		}
	}
	for _, user := range result.UnmatchedUsers {
		err := s.audit.LogIdentityUnmatched(auditCtx, fluentdModel.IdentityUnmatchedLog{
			RunID:       result.RunID,
			EitjeUserID: user.EitjeUserID,
			LocationID:  user.LocationID,
			ShiftCount:  user.ShiftCount,
			LastShift:   user.LastShift.Format(core.DateLayout),
		})
		if err != nil {
			s.logger.Warn("audit unmatched user failed", zap.String("eitje_user_id", user.EitjeUserID), zap.Error(err))
		}
	}
}

// toAppError 引擎錯誤轉成對外的 *cErr.Error
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *cErr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return cErr.AggregationCancelled("aggregation cancelled, change markers not advanced").Wrap(err)
	case errors.Is(err, rawstore.ErrUnavailable):
		return cErr.StoreUnavailable(err.Error()).Wrap(err)
	case errors.Is(err, rawstore.ErrDuplicateKey):
		return cErr.DatabaseError(err.Error()).Wrap(err)
	}
	return cErr.InternalServer(err.Error()).Wrap(err)
}
