package telemetry_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/relcache/internal/adapters/storage"
	"go.trai.ch/relcache/internal/adapters/telemetry"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/relcache/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// counter returns the value of the counter family name whose labels include want.
func counter(t *testing.T, m *telemetry.Metrics, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if hasLabels(metric, want) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestMetrics_Passes(t *testing.T) {
	m := telemetry.NewMetrics()

	m.PassSucceeded("serverGroups", ports.PassStats{Committed: 4, Evicted: 1, Rejected: 2, Duration: time.Second})
	m.PassSucceeded("serverGroups", ports.PassStats{Committed: 1})
	m.PassFailed("serverGroups")

	assert.InDelta(t, 2, counter(t, m, "relcache_passes_total", map[string]string{"kind": "serverGroups", "result": "success"}), 0)
	assert.InDelta(t, 1, counter(t, m, "relcache_passes_total", map[string]string{"kind": "serverGroups", "result": "failure"}), 0)
	assert.InDelta(t, 5, counter(t, m, "relcache_entries_committed_total", map[string]string{"kind": "serverGroups"}), 0)
	assert.InDelta(t, 1, counter(t, m, "relcache_entries_evicted_total", map[string]string{"kind": "serverGroups"}), 0)
	assert.InDelta(t, 2, counter(t, m, "relcache_resources_rejected_total", map[string]string{"kind": "serverGroups"}), 0)

	count, err := testutil.GatherAndCount(m.Registry(), "relcache_pass_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBridge_ObservesSpans(t *testing.T) {
	m := telemetry.NewMetrics()
	tp := telemetry.NewTracerProvider(m, "test")
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	_, ok := tracer.Start(context.Background(), "ingest.pass")
	ok.End()
	_, failed := tracer.Start(context.Background(), "ingest.pass")
	failed.SetStatus(codes.Error, "boom")
	failed.End()

	count, err := testutil.GatherAndCount(m.Registry(), "relcache_span_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per status")
}

func TestBridge_NilMetrics(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(nil)))
	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestInstrumentedStore(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	m := telemetry.NewMetrics()
	store := telemetry.InstrumentStore(storage.NewMemoryStore(), m)
	ctx := context.Background()

	entry := domain.NewEntry(domain.TypeApplications, "applications:foo")
	require.NoError(t, store.Put(ctx, entry))
	got, err := store.Get(ctx, domain.TypeApplications, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	ids, err := store.GetAllPattern(ctx, domain.TypeApplications, domain.NewPattern("applications:*"))
	require.NoError(t, err)
	assert.Equal(t, []string{entry.ID}, ids)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "store.put", spans[0].Name())
	assert.Equal(t, "store.get", spans[1].Name())
	assert.Equal(t, "store.get_all_pattern", spans[2].Name())

	assert.InDelta(t, 1, counter(t, m, "relcache_store_calls_total",
		map[string]string{"op": "get", "type": domain.TypeApplications}), 0)
}

func TestInstrumentedStore_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockCacheStore(ctrl)
	boom := errors.New("connection reset")
	inner.EXPECT().GetAll(gomock.Any(), domain.TypeInstances, gomock.Any()).Return(nil, boom)
	inner.EXPECT().Close().Return(nil)

	m := telemetry.NewMetrics()
	store := telemetry.InstrumentStore(inner, m)

	_, err := store.GetAll(context.Background(), domain.TypeInstances, []string{"instances:a:r:i"})
	require.ErrorIs(t, err, boom)
	require.NoError(t, store.Close())

	assert.InDelta(t, 1, counter(t, m, "relcache_store_errors_total", map[string]string{"op": "get_all"}), 0)
}

func TestServeListener(t *testing.T) {
	m := telemetry.NewMetrics()
	m.PassFailed("instances")

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- telemetry.ServeListener(ctx, lis, m) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `relcache_passes_total{kind="instances",result="failure"} 1`)

	cancel()
	require.NoError(t, <-done)
}
