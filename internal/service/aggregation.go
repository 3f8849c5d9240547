package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsboard/config"
	"opsboard/internal/aggregation/category"
	"opsboard/internal/aggregation/changes"
	"opsboard/internal/aggregation/identity"
	"opsboard/internal/aggregation/labor"
	"opsboard/internal/aggregation/lineitem"
	"opsboard/internal/core"
	"opsboard/internal/database/mongodb/model"
	"opsboard/internal/rawstore"
	"opsboard/internal/telemetry"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// writeBatchSize 單次 BulkUpsert / InsertMany 的最大筆數
const writeBatchSize = 500

// waiterNameLookback 身分比對時讀取 Bork 服務生名稱的期間
const waiterNameLookback = identity.ActivityWindow

// LocationResult 單一門市在一次 pass 內的結果
type LocationResult struct {
	LocationID string               `json:"locationId"`
	Mode       core.AggregationMode `json:"mode"`
	Ranges     []string             `json:"ranges"`
	Records    int                  `json:"records"`
	Skipped    int                  `json:"skipped"`
	Warnings   int                  `json:"warnings"`
	Error      string               `json:"error,omitempty"`
}

type Result struct {
	RunID             string                     `json:"runId"`
	Kind              core.AggregationKind       `json:"kind"`
	Mode              core.AggregationMode       `json:"mode"`
	RecordsAggregated int                        `json:"recordsAggregated"`
	Skipped           int                        `json:"skipped"`
	Warnings          []string                   `json:"warnings"`
	Errors            int                        `json:"errors"`
	Locations         []LocationResult           `json:"locations,omitempty"`
	Duplicates        []identity.DuplicateReport `json:"duplicates,omitempty"`
	UnmatchedUsers    []identity.UnmatchedUser   `json:"unmatchedUsers,omitempty"`
	StartedAt         time.Time                  `json:"startedAt"`
	FinishedAt        time.Time                  `json:"finishedAt"`
}

func (r *Result) addLocation(loc LocationResult, warnings []string) {
	r.Locations = append(r.Locations, loc)
	r.RecordsAggregated += loc.Records
	r.Skipped += loc.Skipped
	r.Warnings = append(r.Warnings, warnings...)
	if loc.Mode == core.ModeFull {
		r.Mode = core.ModeFull
	}
}

// LocationGuard 每個門市開始前呼叫；回傳的 release 在該門市結束後呼叫
type LocationGuard func(ctx context.Context, kind core.AggregationKind, locationID string) (release func(context.Context) error, err error)

type runOptions struct {
	runID string
	full  bool
	guard LocationGuard
}

type RunOption func(*runOptions)

// WithFullRefresh 忽略 change marker，整段區間重新聚合
func WithFullRefresh(full bool) RunOption {
	return func(o *runOptions) { o.full = full }
}

func WithRunID(runID string) RunOption {
	return func(o *runOptions) { o.runID = runID }
}

func WithLocationGuard(guard LocationGuard) RunOption {
	return func(o *runOptions) { o.guard = guard }
}

func buildRunOptions(opts []RunOption) runOptions {
	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	return o
}

type RetryPolicy struct {
	Attempts        uint
	InitialInterval time.Duration
}

// AggregationService 聚合 orchestrator：讀原始資料、呼叫各聚合器、寫回聚合集合並推進 marker。
// 本身不加鎖，同一 key space 的序列化由呼叫端負責。
type AggregationService struct {
	trace   *telemetry.Trace
	logger  *zap.Logger
	store   rawstore.Store
	tracker *changes.Tracker
	retry   RetryPolicy
	now     func() time.Time
}

func NewAggregationService(conf *config.Configuration, trace *telemetry.Trace, logger *zap.Logger, store rawstore.Store) *AggregationService {
	retry := RetryPolicy{Attempts: 3, InitialInterval: 500 * time.Millisecond}
	if conf != nil {
		if conf.Aggregation.RetryAttempts > 0 {
			retry.Attempts = conf.Aggregation.RetryAttempts
		}
		if conf.Aggregation.RetryInitialIntervalMs > 0 {
			retry.InitialInterval = time.Duration(conf.Aggregation.RetryInitialIntervalMs) * time.Millisecond
		}
	}
	return &AggregationService{
		trace:   trace,
		logger:  logger,
		store:   store,
		tracker: changes.NewTracker(store, logger),
		retry:   retry,
		now:     time.Now,
	}
}

// AggregateSalesLineItems locationID 為空時處理區間內所有出現過的門市
func (s *AggregationService) AggregateSalesLineItems(ctx context.Context, r core.DateRange, locationID string, opts ...RunOption) (*Result, error) {
	return s.runPerLocation(ctx, core.KindSalesLineItems, r, locationID, buildRunOptions(opts), s.aggregateSalesLocation)
}

func (s *AggregationService) AggregateLaborHours(ctx context.Context, r core.DateRange, locationID string, opts ...RunOption) (*Result, error) {
	return s.runPerLocation(ctx, core.KindLaborHours, r, locationID, buildRunOptions(opts), s.aggregateLaborLocation)
}

// Locations 區間內該聚合種類有原始資料的門市
func (s *AggregationService) Locations(ctx context.Context, kind core.AggregationKind, r core.DateRange) ([]string, error) {
	collection, err := changes.RawCollection(kind.Source())
	if err != nil {
		return nil, err
	}
	return s.loadLocations(ctx, collection, r)
}

// PlanChanges 只計算增量計畫，不寫入
func (s *AggregationService) PlanChanges(ctx context.Context, source core.Source, r core.DateRange, locationID string) ([]changes.Plan, error) {
	collection, err := changes.RawCollection(source)
	if err != nil {
		return nil, err
	}
	locations := []string{locationID}
	if locationID == "" {
		if locations, err = s.loadLocations(ctx, collection, r); err != nil {
			return nil, err
		}
	}
	plans := make([]changes.Plan, 0, len(locations))
	for _, loc := range locations {
		plans = append(plans, s.tracker.Plan(ctx, source, loc, r))
	}
	return plans, nil
}

type locationPass func(ctx context.Context, runID string, r core.DateRange, locationID string, full bool) (LocationResult, []string, error)

func (s *AggregationService) runPerLocation(contextValue context.Context, kind core.AggregationKind, r core.DateRange, locationID string, opts runOptions, pass locationPass) (result *Result, returnedError error) {
	result = &Result{RunID: opts.runID, Kind: kind, Mode: core.ModeIncremental, Warnings: []string{}, StartedAt: s.now().UTC()}
	defer func() { result.FinishedAt = s.now().UTC() }()

	locations := []string{locationID}
	if locationID == "" {
		discovered, err := s.Locations(contextValue, kind, r)
		if err != nil {
			result.Errors++
			return result, err
		}
		locations = discovered
	}
	s.logger.Info("aggregation started",
		zap.String("run_id", opts.runID),
		zap.String("kind", string(kind)),
		zap.String("range", r.String()),
		zap.Strings("locations", locations),
		zap.Bool("full", opts.full),
	)

	var errs []error
	for _, loc := range locations {
		if err := contextValue.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		release, err := s.guard(contextValue, opts.guard, kind, loc)
		if err != nil {
			// 指定單一門市時直接回報；自動探索時略過被占用的門市
			if locationID != "" {
				result.Errors++
				return result, err
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("location %s skipped: %v", loc, err))
			continue
		}
		locResult, warnings, err := pass(contextValue, opts.runID, r, loc, opts.full)
		if releaseErr := release(context.WithoutCancel(contextValue)); releaseErr != nil {
			s.logger.Warn("release aggregation guard failed", zap.String("location_id", loc), zap.Error(releaseErr))
		}
		if err != nil {
			locResult.Error = err.Error()
			result.Errors++
			errs = append(errs, err)
		}
		result.addLocation(locResult, warnings)
		s.logger.Info("aggregation location finished",
			zap.String("run_id", opts.runID),
			zap.String("kind", string(kind)),
			zap.String("location_id", loc),
			zap.String("mode", string(locResult.Mode)),
			zap.Strings("ranges", locResult.Ranges),
			zap.Int("records", locResult.Records),
			zap.Int("skipped", locResult.Skipped),
			zap.Int("warnings", locResult.Warnings),
			zap.Error(err),
		)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}
	return result, errors.Join(errs...)
}

func (s *AggregationService) guard(ctx context.Context, guard LocationGuard, kind core.AggregationKind, loc string) (func(context.Context) error, error) {
	if guard == nil {
		return func(context.Context) error { return nil }, nil
	}
	release, err := guard(ctx, kind, loc)
	if err != nil {
		return nil, err
	}
	if release == nil {
		release = func(context.Context) error { return nil }
	}
	return release, nil
}

// plan full 時略過 tracker；否則交給 tracker 判斷
func (s *AggregationService) plan(ctx context.Context, source core.Source, r core.DateRange, loc string, full bool) ([]core.DateRange, core.AggregationMode) {
	if full {
		return []core.DateRange{r}, core.ModeFull
	}
	return s.tracker.ChangedRanges(ctx, source, loc, r)
}

func rangeStrings(ranges []core.DateRange) []string {
	strs := make([]string, len(ranges))
	for i, r := range ranges {
		strs[i] = r.String()
	}
	return strs
}

// advance 全部區間都寫入成功才推進；推進失敗只會讓下次多算，不視為 pass 失敗
func (s *AggregationService) advance(ctx context.Context, source core.Source, loc string, at time.Time) []string {
	if err := s.tracker.Advance(ctx, source, loc, at); err != nil {
		s.logger.Warn("advance change marker failed", zap.String("source", string(source)), zap.String("location_id", loc), zap.Error(err))
		return []string{fmt.Sprintf("location %s: change marker not advanced: %v", loc, err)}
	}
	return nil
}

// ─── 銷售明細 ──────────────────────────────────────────────────────────────────

func (s *AggregationService) aggregateSalesLocation(contextValue context.Context, runID string, r core.DateRange, loc string, full bool) (result LocationResult, warnings []string, returnedError error) {
	contextValue, span, endSpan := s.trace.WithSpan(contextValue, string(core.SpanSalesPass))
	defer func() { endSpan(returnedError) }()

	passStart := s.now().UTC()
	ranges, mode := s.plan(contextValue, core.SourceBork, r, loc, full)
	result = LocationResult{LocationID: loc, Mode: mode, Ranges: rangeStrings(ranges)}
	defer func() {
		result.Warnings = len(warnings)
		s.trace.ApplyTraceAttributes(span, core.TraceAggregationPassMeta{
			RunID: runID, Kind: string(core.KindSalesLineItems), LocationID: loc,
			From: r.FromKey(), To: r.ToKey(), Mode: string(mode), Ranges: result.Ranges,
			Records: result.Records, Skipped: result.Skipped, Warnings: result.Warnings,
		})
	}()
	if len(ranges) == 0 {
		return result, warnings, nil
	}

	groups, err := s.loadProductGroups(contextValue, loc)
	if err != nil {
		return result, warnings, err
	}
	resolver := category.New(groups)

	for _, rg := range ranges {
		if err := contextValue.Err(); err != nil {
			return result, warnings, err
		}
		tickets, err := s.loadRawRecords(contextValue, core.MongoCollectionBorkRawTickets, rawstore.DateRangeFilter(rg, loc))
		if err != nil {
			return result, warnings, err
		}
		out := lineitem.Aggregate(tickets, resolver)
		if err := contextValue.Err(); err != nil {
			return result, warnings, err
		}
		if err := s.replaceSalesRange(contextValue, rg, loc, out.Items); err != nil {
			return result, warnings, err
		}
		result.Records += len(out.Items)
		result.Skipped += out.Skipped
		warnings = append(warnings, out.Warnings...)
	}
	warnings = append(warnings, s.advance(contextValue, core.SourceBork, loc, passStart)...)
	return result, warnings, nil
}

// replaceSalesRange (date range, location) 內先刪後寫。支援 transaction 時原子提交，
// 否則整段 delete+insert 以 backoff 重跑，直到成功或次數用完。
func (s *AggregationService) replaceSalesRange(contextValue context.Context, rg core.DateRange, loc string, items []model.SalesLineItemAggregated) (returnedError error) {
	contextValue, span, endSpan := s.trace.WithSpan(contextValue, string(core.SpanReplaceRange))
	defer func() { endSpan(returnedError) }()

	docs := make([]any, len(items))
	ids := make(bson.A, len(items))
	for i := range items {
		docs[i] = items[i]
		ids[i] = items[i].ID
	}
	meta := core.TraceStoreWriteMeta{Collection: string(core.MongoCollectionSalesLineItems), Op: "replace"}
	defer func() { s.trace.ApplyTraceAttributes(span, meta) }()

	replace := func(ctx context.Context) error {
		meta.Attempts++
		deleted, err := s.store.DeleteMany(ctx, core.MongoCollectionSalesLineItems, rawstore.DateRangeFilter(rg, loc))
		if err != nil {
			return err
		}
		// 同一張票據先前以其他日期匯出的明細落在區間外，依自然鍵一併移除
		for start := 0; start < len(ids); start += writeBatchSize {
			end := min(start+writeBatchSize, len(ids))
			moved, err := s.store.DeleteMany(ctx, core.MongoCollectionSalesLineItems, bson.M{"_id": bson.M{"$in": ids[start:end]}})
			if err != nil {
				return err
			}
			deleted += moved
		}
		meta.Deleted = deleted
		meta.Inserted = 0
		for start := 0; start < len(docs); start += writeBatchSize {
			end := min(start+writeBatchSize, len(docs))
			res, err := s.store.InsertMany(ctx, core.MongoCollectionSalesLineItems, docs[start:end])
			if err != nil {
				return err
			}
			meta.Inserted += res.Inserted
		}
		return nil
	}

	if tx, ok := rawstore.AsTransactor(s.store); ok {
		meta.Transactional = true
		if err := tx.WithTransaction(contextValue, replace); err != nil {
			return fmt.Errorf("replace sales %s %s: %w", loc, rg, err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retry.InitialInterval
	_, err := backoff.Retry(contextValue, func() (struct{}, error) {
		err := replace(contextValue)
		if err != nil && !errors.Is(err, rawstore.ErrUnavailable) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			s.logger.Warn("sales replace failed, retrying whole range",
				zap.String("location_id", loc), zap.String("range", rg.String()),
				zap.Int("attempt", meta.Attempts), zap.Error(err))
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(s.retry.Attempts))
	if err != nil {
		return fmt.Errorf("replace sales %s %s after %d attempts: %w", loc, rg, meta.Attempts, err)
	}
	return nil
}

// ─── 工時 ──────────────────────────────────────────────────────────────────────

func (s *AggregationService) aggregateLaborLocation(contextValue context.Context, runID string, r core.DateRange, loc string, full bool) (result LocationResult, warnings []string, returnedError error) {
	contextValue, span, endSpan := s.trace.WithSpan(contextValue, string(core.SpanLaborPass))
	defer func() { endSpan(returnedError) }()

	passStart := s.now().UTC()
	ranges, mode := s.plan(contextValue, core.SourceEitje, r, loc, full)
	result = LocationResult{LocationID: loc, Mode: mode, Ranges: rangeStrings(ranges)}
	defer func() {
		result.Warnings = len(warnings)
		s.trace.ApplyTraceAttributes(span, core.TraceAggregationPassMeta{
			RunID: runID, Kind: string(core.KindLaborHours), LocationID: loc,
			From: r.FromKey(), To: r.ToKey(), Mode: string(mode), Ranges: result.Ranges,
			Records: result.Records, Skipped: result.Skipped, Warnings: result.Warnings,
		})
	}()

	for _, rg := range ranges {
		if err := contextValue.Err(); err != nil {
			return result, warnings, err
		}
		shifts, err := s.loadRawRecords(contextValue, core.MongoCollectionEitjeRawShifts, rawstore.DateRangeFilter(rg, loc))
		if err != nil {
			return result, warnings, err
		}
		out := labor.Aggregate(shifts)
		if err := contextValue.Err(); err != nil {
			return result, warnings, err
		}
		updatedAt := s.now().UTC()
		ops := make([]rawstore.UpsertOp, 0, len(out.Rows))
		for i := range out.Rows {
			row := out.Rows[i]
			row.UpdatedAt = updatedAt
			set, err := toSetDocument(row)
			if err != nil {
				return result, warnings, fmt.Errorf("encode labor row: %w", err)
			}
			ops = append(ops, rawstore.UpsertOp{Filter: row.NaturalKey(), Update: bson.M{"$set": set}})
		}
		if err := s.upsertBatches(contextValue, core.MongoCollectionLaborHours, ops); err != nil {
			return result, warnings, err
		}
		result.Records += len(out.Rows)
		result.Skipped += out.Skipped
		warnings = append(warnings, out.Warnings...)
	}
	warnings = append(warnings, s.advance(contextValue, core.SourceEitje, loc, passStart)...)
	return result, warnings, nil
}

func (s *AggregationService) upsertBatches(contextValue context.Context, collection core.MongoCollection, ops []rawstore.UpsertOp) (returnedError error) {
	contextValue, span, endSpan := s.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	meta := core.TraceStoreWriteMeta{Collection: string(collection), Op: "upsert"}
	defer func() { s.trace.ApplyTraceAttributes(span, meta) }()
	for start := 0; start < len(ops); start += writeBatchSize {
		end := min(start+writeBatchSize, len(ops))
		meta.Attempts++
		res, err := s.store.BulkUpsert(contextValue, collection, ops[start:end])
		if err != nil {
			return fmt.Errorf("upsert %s: %w", collection, err)
		}
		meta.Matched += res.Matched
		meta.Upserted += res.Upserted
	}
	return nil
}

// ─── 員工身分 ──────────────────────────────────────────────────────────────────

// ReconcileWorkerProfiles 全量比對；unified_worker_profiles 以 eitjeUserId（無則 profileId）upsert
func (s *AggregationService) ReconcileWorkerProfiles(contextValue context.Context, opts ...RunOption) (result *Result, returnedError error) {
	o := buildRunOptions(opts)
	result = &Result{RunID: o.runID, Kind: core.KindWorkerProfiles, Mode: core.ModeFull, Warnings: []string{}, StartedAt: s.now().UTC()}
	defer func() {
		result.FinishedAt = s.now().UTC()
		if returnedError != nil {
			result.Errors++
		}
	}()

	contextValue, span, endSpan := s.trace.WithSpan(contextValue, string(core.SpanIdentityPass))
	defer func() { endSpan(returnedError) }()

	release, err := s.guard(contextValue, o.guard, core.KindWorkerProfiles, "")
	if err != nil {
		return result, err
	}
	defer func() {
		if err := release(context.WithoutCancel(contextValue)); err != nil {
			s.logger.Warn("release aggregation guard failed", zap.Error(err))
		}
	}()

	now := s.now().UTC()
	profiles, err := s.loadWorkerProfiles(contextValue)
	if err != nil {
		return result, err
	}
	unifiedUsers, err := s.loadUnifiedUsers(contextValue)
	if err != nil {
		return result, err
	}
	eitjeUsers, err := s.loadEitjeUsers(contextValue)
	if err != nil {
		return result, err
	}
	shifts, err := s.loadRawRecords(contextValue, core.MongoCollectionEitjeRawShifts, bson.M{})
	if err != nil {
		return result, err
	}
	tickets, err := s.loadRawRecords(contextValue, core.MongoCollectionBorkRawTickets, lookbackFilter(now, waiterNameLookback))
	if err != nil {
		return result, err
	}
	if err := contextValue.Err(); err != nil {
		return result, err
	}

	waiterNames := lineitem.WaiterNames(tickets)
	out := identity.Reconcile(identity.Input{
		UnifiedUsers:    unifiedUsers,
		EitjeUsers:      eitjeUsers,
		BorkWaiterNames: waiterNames,
		WorkerProfiles:  profiles,
		Shifts:          shifts,
		Now:             now,
	})
	for _, dup := range out.Duplicates {
		s.logger.Warn("duplicate worker profiles for eitje user",
			zap.String("run_id", o.runID),
			zap.String("eitje_user_id", dup.EitjeUserID),
			zap.String("kept_profile_id", dup.KeptProfileID),
			zap.Strings("dropped_profile_ids", dup.DroppedProfileIDs),
		)
	}

	ops := make([]rawstore.UpsertOp, 0, len(out.Profiles))
	for i := range out.Profiles {
		profile := out.Profiles[i]
		set, err := toSetDocument(profile)
		if err != nil {
			return result, fmt.Errorf("encode worker profile %s: %w", profile.ProfileID, err)
		}
		ops = append(ops, rawstore.UpsertOp{Filter: profile.NaturalKey(), Update: bson.M{"$set": set}})
	}
	if err := s.upsertBatches(contextValue, core.MongoCollectionUnifiedWorkerProfiles, ops); err != nil {
		return result, err
	}

	result.RecordsAggregated = len(out.Profiles)
	result.Warnings = append(result.Warnings, out.Warnings...)
	result.Duplicates = out.Duplicates
	result.UnmatchedUsers = out.UnmatchedUsers
	s.trace.ApplyTraceAttributes(span, core.TraceIdentityMeta{
		RunID:          o.runID,
		Profiles:       len(out.Profiles),
		Duplicates:     len(out.Duplicates),
		UnmatchedUsers: len(out.UnmatchedUsers),
		WaiterNames:    len(waiterNames),
	})
	s.logger.Info("worker profiles reconciled",
		zap.String("run_id", o.runID),
		zap.Int("profiles", len(out.Profiles)),
		zap.Int("duplicate_groups", len(out.Duplicates)),
		zap.Int("unmatched_users", len(out.UnmatchedUsers)),
		zap.Int("warnings", len(out.Warnings)),
	)
	return result, nil
}
