package cron

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"opsboard/config"
	"opsboard/internal/core"
	"opsboard/internal/service"

	"go.uber.org/zap"
)

type fakeJobs struct {
	mu        sync.Mutex
	locations []string
	failOn    string
	requests  []service.JobRequest
	identity  int
	active    int
	maxActive int
}

func (f *fakeJobs) run(ctx context.Context, req service.JobRequest) (*service.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	if req.LocationID == f.failOn {
		return nil, errors.New("boom")
	}
	return &service.Result{RecordsAggregated: 1}, nil
}

func (f *fakeJobs) RunSalesLineItems(ctx context.Context, req service.JobRequest) (*service.Result, error) {
	return f.run(ctx, req)
}

func (f *fakeJobs) RunLaborHours(ctx context.Context, req service.JobRequest) (*service.Result, error) {
	return f.run(ctx, req)
}

func (f *fakeJobs) RunWorkerProfiles(ctx context.Context, trigger service.Trigger) (*service.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity++
	return &service.Result{}, nil
}

func (f *fakeJobs) Locations(ctx context.Context, kind core.AggregationKind, r core.DateRange) ([]string, error) {
	return f.locations, nil
}

func newTestCron(t *testing.T, jobs jobRunner, tz string) *Cron {
	t.Helper()
	conf := &config.Configuration{}
	conf.Aggregation.Timezone = tz
	conf.Aggregation.Cron.LookbackDays = 2
	conf.Aggregation.Cron.Concurrency = 2
	c, err := newCron(zap.NewNop(), conf, jobs)
	if err != nil {
		t.Fatalf("new cron: %v", err)
	}
	return c
}

func TestLookbackUsesConfiguredTimezone(t *testing.T) {
	c := newTestCron(t, &fakeJobs{}, "Europe/Amsterdam")
	// 23:30 UTC 在阿姆斯特丹已是隔天
	c.now = func() time.Time { return time.Date(2024, 10, 27, 23, 30, 0, 0, time.UTC) }

	r := c.lookback()
	if r.FromKey() != "2024-10-26" || r.ToKey() != "2024-10-28" {
		t.Fatalf("got %s want 2024-10-26..2024-10-28", r)
	}
}

func TestInvalidTimezone(t *testing.T) {
	conf := &config.Configuration{}
	conf.Aggregation.Timezone = "Mars/Olympus"
	if _, err := newCron(zap.NewNop(), conf, &fakeJobs{}); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestRunRangedFansOutPerLocation(t *testing.T) {
	jobs := &fakeJobs{locations: []string{"L1", "L2", "L3", "L4"}, failOn: "L2"}
	c := newTestCron(t, jobs, "")
	c.now = func() time.Time { return time.Date(2024, 10, 28, 6, 0, 0, 0, time.UTC) }

	c.runRanged(core.KindSalesLineItems, jobs.RunSalesLineItems)

	if len(jobs.requests) != 4 {
		t.Fatalf("got %d requests want 4; a failing location must not stop the others", len(jobs.requests))
	}
	var got []string
	for _, req := range jobs.requests {
		if req.Trigger != service.TriggerCron {
			t.Errorf("trigger = %s want cron", req.Trigger)
		}
		if req.Range.FromKey() != "2024-10-26" || req.Range.ToKey() != "2024-10-28" {
			t.Errorf("range = %s", req.Range)
		}
		got = append(got, req.LocationID)
	}
	sort.Strings(got)
	if got[0] != "L1" || got[3] != "L4" {
		t.Fatalf("locations = %v", got)
	}
	if jobs.maxActive > 2 {
		t.Fatalf("concurrency %d exceeded limit 2", jobs.maxActive)
	}
}

func TestRunRegistersConfiguredSchedules(t *testing.T) {
	jobs := &fakeJobs{}
	c := newTestCron(t, jobs, "")
	c.config.Aggregation.Cron.Enabled = true
	c.config.Aggregation.Cron.SalesSpec = "0 */15 * * * *"
	c.config.Aggregation.Cron.IdentitySpec = "0 0 3 * * *"

	if err := c.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	defer c.Stop(context.Background())

	if got := len(c.server.Entries()); got != 2 {
		t.Fatalf("got %d entries want 2", got)
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	c := newTestCron(t, &fakeJobs{}, "")
	c.config.Aggregation.Cron.Enabled = true
	c.config.Aggregation.Cron.LaborSpec = "every tuesday-ish"
	if err := c.Run(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
