package telemetry

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"opsboard/config"
	"opsboard/internal/core"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Trace struct {
	TracerProvider *sdktrace.TracerProvider
	ServiceName    string
}

// NewNoopTrace 不輸出任何 span，CLI 與測試使用
func NewNoopTrace() *Trace {
	return &Trace{}
}

func NewTrace(conf *config.Configuration) (*Trace, func(), error) {
	if conf == nil || !conf.Telemetry.Trace.Enabled {
		return NewNoopTrace(), func() {}, nil
	}
	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithEndpointURL(conf.Telemetry.Trace.EndpointUrl),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  60 * time.Second,
		}),
		otlptracehttp.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	// 聚合 pass 數量少，預設全收；批次量大時以 SAMPLE_RATIO 降低
	sampler := sdktrace.AlwaysSample()
	if ratio := conf.Telemetry.Trace.SampleRatio; ratio > 0 && ratio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(conf.App.Name),
			semconv.ServiceVersion(conf.App.Version),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}
	return &Trace{TracerProvider: tp, ServiceName: conf.App.Name}, cleanup, nil
}

func (t *Trace) tracer() trace.Tracer {
	if t == nil || t.TracerProvider == nil {
		return noop.NewTracerProvider().Tracer("noop")
	}
	return t.TracerProvider.Tracer(t.ServiceName)
}

func (t *Trace) StartSpanForLayer(ctx context.Context, spanName core.TraceSpanName, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer().Start(ctx, string(spanName), opts...)
}

// StartSpanFromGinAuto handler 用：父 ctx 取自 gin，span 名稱取自 handler
func (t *Trace) StartSpanFromGinAuto(c *gin.Context, name ...string) (context.Context, trace.Span) {
	n := spanNameFromGin(c)
	if len(name) > 0 && strings.TrimSpace(name[0]) != "" {
		n = name[0]
	}
	ctx, span := t.StartSpanForLayer(t.GetTraceContext(c), core.TraceSpanName(n))
	c.Set(core.ContextTraceKey, ctx)
	return ctx, span
}

// StartSpanAuto service / repository 用：span 名稱取自呼叫者
func (t *Trace) StartSpanAuto(ctx context.Context, name ...string) (context.Context, trace.Span) {
	n := prettifyFuncName(callerFuncName(4))
	if len(name) > 0 && strings.TrimSpace(name[0]) != "" {
		n = name[0]
	}
	if n == "" {
		n = "unknown"
	}
	return t.StartSpanForLayer(ctx, core.TraceSpanName(n))
}

func (t *Trace) startSpanAny(parent any, name ...string) (context.Context, trace.Span) {
	switch p := parent.(type) {
	case *gin.Context:
		return t.StartSpanFromGinAuto(p, name...)
	case context.Context:
		return t.StartSpanAuto(p, name...)
	default:
		n := "unknown"
		if len(name) > 0 && strings.TrimSpace(name[0]) != "" {
			n = name[0]
		}
		return t.StartSpanForLayer(context.Background(), core.TraceSpanName(n))
	}
}

func (t *Trace) EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// WithSpan 回傳子 ctx、span 與結束函式；parent 可為 *gin.Context 或 context.Context
func (t *Trace) WithSpan(parent any, name ...string) (context.Context, trace.Span, func(error)) {
	ctx, span := t.startSpanAny(parent, name...)
	return ctx, span, func(err error) { t.EndSpan(span, err) }
}

func (t *Trace) GetTraceContext(c *gin.Context) context.Context {
	if ctx, ok := c.Get(core.ContextTraceKey); ok {
		return ctx.(context.Context)
	}
	return c.Request.Context()
}

// ApplyTraceAttributes 依 `trace:"key"` tag 把 struct 欄位寫成 span attributes
func (t *Trace) ApplyTraceAttributes(span trace.Span, obj any) {
	if span == nil || obj == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			span.RecordError(fmt.Errorf("ApplyTraceAttributes panic: %v", r))
		}
	}()
	span.SetAttributes(traceAttributes(reflect.ValueOf(obj))...)
}

func traceAttributes(val reflect.Value) []attribute.KeyValue {
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	var attrs []attribute.KeyValue
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("trace")
		fieldVal := val.Field(i)
		if tag == "" || !fieldVal.CanInterface() {
			continue
		}
		key, omitEmpty := strings.CutSuffix(tag, ",omitempty")
		if omitEmpty && fieldVal.IsZero() {
			continue
		}

		switch fieldVal.Kind() {
		case reflect.Struct, reflect.Ptr:
			attrs = append(attrs, traceAttributes(fieldVal)...)
		case reflect.Map:
			if fieldVal.Type().Key().Kind() != reflect.String {
				continue
			}
			for _, mapKey := range fieldVal.MapKeys() {
				if kv, ok := scalarAttribute(key+"."+mapKey.String(), fieldVal.MapIndex(mapKey)); ok {
					attrs = append(attrs, kv)
				}
			}
		default:
			if kv, ok := scalarAttribute(key, fieldVal); ok {
				attrs = append(attrs, kv)
			}
		}
	}
	return attrs
}

func scalarAttribute(key string, v reflect.Value) (attribute.KeyValue, bool) {
	switch v.Kind() {
	case reflect.String:
		return attribute.String(key, v.String()), true
	case reflect.Bool:
		return attribute.Bool(key, v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return attribute.Int64(key, v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return attribute.Int64(key, int64(v.Uint())), true
	case reflect.Float32, reflect.Float64:
		return attribute.Float64(key, v.Float()), true
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() != reflect.String {
			return attribute.KeyValue{}, false
		}
		strs := make([]string, v.Len())
		for j := range strs {
			strs[j] = v.Index(j).String()
		}
		return attribute.StringSlice(key, strs), true
	}
	return attribute.KeyValue{}, false
}

// ==== 名稱處理 ====

func prettifyFuncName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	full = strings.TrimSuffix(full, "-fm")
	if i := strings.LastIndex(full, ".func"); i >= 0 {
		full = full[:i]
	}
	if i := strings.Index(full, "."); i >= 0 {
		full = full[i+1:]
	}
	full = strings.NewReplacer("(*", "", "(", "", ")", "").Replace(full)
	if i := strings.Index(full, "["); i >= 0 {
		if j := strings.Index(full, "]"); j > i {
			full = full[:i] + full[j+1:]
		}
	}
	return full
}

func spanNameFromGin(c *gin.Context) string {
	if hn := c.HandlerName(); hn != "" {
		return prettifyFuncName(hn)
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return c.Request.Method + " " + route
}

func callerFuncName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		return fn.Name()
	}
	return ""
}
