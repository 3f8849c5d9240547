package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"opsboard/config"
	"opsboard/internal/core"
	fluentdModel "opsboard/internal/database/fluentd/model"
	redisRepository "opsboard/internal/database/redis/repository"
	"opsboard/internal/middleware"
	cErr "opsboard/internal/pkg/error"
	"opsboard/internal/pkg/request"
	"opsboard/internal/pkg/response"
	"opsboard/internal/rawstore/memstore"
	"opsboard/internal/service"
	"opsboard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type heldLocker struct {
	held bool
}

func (l *heldLocker) Acquire(ctx context.Context, kind core.AggregationKind, locationID string) (func(context.Context) error, error) {
	if l.held {
		return nil, redisRepository.ErrLockHeld
	}
	return func(context.Context) error { return nil }, nil
}

type nopAudit struct{}

func (nopAudit) LogAggregationRun(context.Context, fluentdModel.AggregationRunLog) error { return nil }
func (nopAudit) LogIdentityDuplicate(context.Context, fluentdModel.IdentityDuplicateLog) error {
	return nil
}
func (nopAudit) LogIdentityUnmatched(context.Context, fluentdModel.IdentityUnmatchedLog) error {
	return nil
}

func newTestEngine(t *testing.T, locker *heldLocker) (*gin.Engine, *memstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := request.RegisterValidations(v); err != nil {
			t.Fatalf("register validations: %v", err)
		}
	}

	store := memstore.New()
	updatedAt := time.Date(2024, 10, 23, 22, 0, 0, 0, time.UTC)
	err := store.Seed(core.MongoCollectionBorkRawTickets, bson.M{
		"source": "bork", "sourceId": "T1", "locationId": "L1", "date": "2024-10-23",
		"ingestedAt": updatedAt, "updatedAt": updatedAt,
		"rawData": bson.M{"Key": "T1", "Orders": bson.A{bson.M{"Key": "o1", "Lines": bson.A{
			bson.M{"Key": "l1", "ProductName": "Cola", "Qty": int32(1), "Price": 3.0, "TotalInc": 3.0},
		}}}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	conf := &config.Configuration{}
	conf.Aggregation.RetryAttempts = 1
	trace := telemetry.NewNoopTrace()
	aggregation := service.NewAggregationService(conf, trace, zap.NewNop(), store)
	jobs := service.NewJobService(zap.NewNop(), &telemetry.Metric{}, aggregation, locker, nopAudit{})
	h := NewAggregationHandler(trace, jobs)

	r := gin.New()
	r.Use(middleware.NewRecovery(zap.NewNop(), trace).ErrorHandler())
	r.Use(middleware.NewResponse(zap.NewNop(), trace).FormatHandler())
	r.POST("/aggregations/sales-line-items", h.SalesLineItems)
	r.POST("/aggregations/labor-hours", h.LaborHours)
	r.GET("/aggregations/changes", h.Changes)
	return r, store
}

func do(r *gin.Engine, method, target, body string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var res response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	return w, res
}

func TestTriggerSalesAggregation(t *testing.T) {
	r, _ := newTestEngine(t, &heldLocker{})

	w, res := do(r, http.MethodPost, "/aggregations/sales-line-items", `{"from":"2024-10-21","to":"2024-10-27","full":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", res.Data)
	}
	if data["kind"] != string(core.KindSalesLineItems) || data["mode"] != string(core.ModeFull) {
		t.Fatalf("data = %v", data)
	}
	if data["recordsAggregated"] != float64(1) {
		t.Fatalf("recordsAggregated = %v", data["recordsAggregated"])
	}
	if res.RequestID == "" {
		t.Fatal("requestID should be set")
	}
}

func TestTriggerErrors(t *testing.T) {
	tests := []struct {
		name       string
		held       bool
		method     string
		target     string
		body       string
		wantStatus int
		wantCode   int
	}{
		{name: "missing body", method: http.MethodPost, target: "/aggregations/labor-hours", body: "", wantStatus: http.StatusBadRequest, wantCode: cErr.BAD_REQUEST_BODY},
		{name: "bad date", method: http.MethodPost, target: "/aggregations/labor-hours", body: `{"from":"2024/10/21","to":"2024-10-27"}`, wantStatus: http.StatusBadRequest, wantCode: cErr.BAD_REQUEST_BODY},
		{name: "reversed range", method: http.MethodPost, target: "/aggregations/sales-line-items", body: `{"from":"2024-10-27","to":"2024-10-21"}`, wantStatus: http.StatusBadRequest, wantCode: cErr.INVALID_DATE_RANGE},
		{name: "lock held", held: true, method: http.MethodPost, target: "/aggregations/sales-line-items", body: `{"from":"2024-10-21","to":"2024-10-27","locationId":"L1"}`, wantStatus: http.StatusConflict, wantCode: cErr.AGGREGATION_IN_PROGRESS},
		{name: "unknown source", method: http.MethodGet, target: "/aggregations/changes?source=powerbi&from=2024-10-21&to=2024-10-27", wantStatus: http.StatusBadRequest, wantCode: cErr.BAD_REQUEST_PARAMS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestEngine(t, &heldLocker{held: tt.held})
			w, res := do(r, tt.method, tt.target, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status %d want %d body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if res.Code != tt.wantCode {
				t.Fatalf("code %d want %d", res.Code, tt.wantCode)
			}
		})
	}
}

func TestPartialFailureKeepsResult(t *testing.T) {
	r, store := newTestEngine(t, &heldLocker{})
	updatedAt := time.Date(2024, 10, 23, 22, 0, 0, 0, time.UTC)
	err := store.Seed(core.MongoCollectionBorkRawTickets, bson.M{
		"source": "bork", "sourceId": "T2", "locationId": "L2", "date": "2024-10-23",
		"ingestedAt": updatedAt, "updatedAt": updatedAt,
		"rawData": bson.M{"Key": "T2", "Orders": bson.A{bson.M{"Key": "o1", "Lines": bson.A{
			bson.M{"Key": "l1", "ProductName": "Fanta", "Qty": int32(1), "Price": 2.5},
		}}}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	// 第一個門市讀取商品群組失敗，第二個門市照常完成
	store.FailOn(memstore.OpFind, core.MongoCollectionBorkProductGroups, errors.New("socket closed"), 1)

	w, res := do(r, http.MethodPost, "/aggregations/sales-line-items", `{"from":"2024-10-21","to":"2024-10-27","full":true}`)
	if w.Code != http.StatusServiceUnavailable || res.Code != cErr.STORE_UNAVAILABLE {
		t.Fatalf("status %d code %d body %s", w.Code, res.Code, w.Body.String())
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("failed run should still carry its result, data = %v", res.Data)
	}
	if data["recordsAggregated"] != float64(1) || data["errors"] != float64(1) {
		t.Fatalf("data = %v", data)
	}
	locations, _ := data["locations"].([]any)
	if len(locations) != 2 {
		t.Fatalf("locations = %v", data["locations"])
	}
}

func TestChangesPreview(t *testing.T) {
	r, _ := newTestEngine(t, &heldLocker{})

	w, res := do(r, http.MethodGet, "/aggregations/changes?source=bork&from=2024-10-21&to=2024-10-27", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	plans, ok := res.Data.([]any)
	if !ok || len(plans) != 1 {
		t.Fatalf("data = %v", res.Data)
	}
	plan := plans[0].(map[string]any)
	if plan["locationId"] != "L1" || plan["mode"] != string(core.ModeFull) {
		t.Fatalf("plan = %v", plan)
	}
}
