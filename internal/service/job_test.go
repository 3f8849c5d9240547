package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"opsboard/internal/core"
	fluentdModel "opsboard/internal/database/fluentd/model"
	redisRepository "opsboard/internal/database/redis/repository"
	cErr "opsboard/internal/pkg/error"
	"opsboard/internal/rawstore/memstore"

	"go.uber.org/zap"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released []string
}

func (f *fakeLocker) Acquire(ctx context.Context, kind core.AggregationKind, locationID string) (func(context.Context) error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := fmt.Sprintf("%s:%s", kind, locationID)
	if f.held[key] {
		return nil, fmt.Errorf("%w: %s", redisRepository.ErrLockHeld, key)
	}
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released = append(f.released, key)
		return nil
	}, nil
}

type fakeAudit struct {
	runs       []fluentdModel.AggregationRunLog
	duplicates []fluentdModel.IdentityDuplicateLog
	unmatched  []fluentdModel.IdentityUnmatchedLog
}

func (f *fakeAudit) LogAggregationRun(ctx context.Context, record fluentdModel.AggregationRunLog) error {
	f.runs = append(f.runs, record)
	return nil
}

func (f *fakeAudit) LogIdentityDuplicate(ctx context.Context, record fluentdModel.IdentityDuplicateLog) error {
	f.duplicates = append(f.duplicates, record)
	return nil
}

func (f *fakeAudit) LogIdentityUnmatched(ctx context.Context, record fluentdModel.IdentityUnmatchedLog) error {
	f.unmatched = append(f.unmatched, record)
	return nil
}

func newTestJobService(t *testing.T, locker *fakeLocker, audit *fakeAudit) (*JobService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	seedSales(t, store)
	return NewJobService(zap.NewNop(), nil, newTestService(store), locker, audit), store
}

func TestJobRunAuditsEachLocation(t *testing.T) {
	locker := &fakeLocker{}
	audit := &fakeAudit{}
	jobs, _ := newTestJobService(t, locker, audit)

	result, err := jobs.RunSalesLineItems(context.Background(), JobRequest{Range: week, Trigger: TriggerCLI})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Locations) != 2 || len(audit.runs) != 2 {
		t.Fatalf("got %d locations and %d audit records want 2", len(result.Locations), len(audit.runs))
	}
	for _, run := range audit.runs {
		if run.Status != string(core.RunStatusSucceeded) || run.Trigger != string(TriggerCLI) || run.RunID != result.RunID {
			t.Fatalf("unexpected audit record %+v", run)
		}
	}
	if len(locker.released) != 2 {
		t.Fatalf("every lock should be released, got %v", locker.released)
	}
}

func TestJobLockHeld(t *testing.T) {
	tests := []struct {
		name        string
		locationID  string
		wantErrCode int
		wantRecords int
	}{
		{name: "explicit location is rejected", locationID: "L1", wantErrCode: cErr.AGGREGATION_IN_PROGRESS},
		{name: "discovered location is skipped", locationID: "", wantRecords: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locker := &fakeLocker{held: map[string]bool{"sales_line_items:L1": true}}
			jobs, _ := newTestJobService(t, locker, &fakeAudit{})

			result, err := jobs.RunSalesLineItems(context.Background(), JobRequest{Range: week, LocationID: tt.locationID})
			if tt.wantErrCode != 0 {
				var appErr *cErr.Error
				if !errors.As(err, &appErr) || appErr.ErrorCode() != tt.wantErrCode {
					t.Fatalf("got %v want code %d", err, tt.wantErrCode)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if result.RecordsAggregated != tt.wantRecords || len(result.Warnings) == 0 {
				t.Fatalf("got %+v", result)
			}
		})
	}
}

func TestJobErrorMapping(t *testing.T) {
	jobs, store := newTestJobService(t, &fakeLocker{}, &fakeAudit{})
	store.FailOn(memstore.OpFind, core.MongoCollectionBorkProductGroups, errors.New("no primary"), 0)

	_, err := jobs.RunSalesLineItems(context.Background(), JobRequest{Range: week, LocationID: "L1", Full: true})
	var appErr *cErr.Error
	if !errors.As(err, &appErr) || appErr.ErrorCode() != cErr.STORE_UNAVAILABLE {
		t.Fatalf("got %v want store unavailable", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = jobs.RunLaborHours(ctx, JobRequest{Range: week, LocationID: "L1"})
	if !errors.As(err, &appErr) || appErr.ErrorCode() != cErr.AGGREGATION_CANCELLED {
		t.Fatalf("got %v want cancelled", err)
	}
}

func TestJobLockUnavailable(t *testing.T) {
	jobs, _ := newTestJobService(t, &fakeLocker{err: errors.New("connection refused")}, &fakeAudit{})
	_, err := jobs.RunSalesLineItems(context.Background(), JobRequest{Range: week, LocationID: "L1"})
	var appErr *cErr.Error
	if !errors.As(err, &appErr) || appErr.ErrorCode() != cErr.SERVICE_UNAVAILABLE {
		t.Fatalf("got %v want service unavailable", err)
	}
}
