package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestHTTPMetricsObserveExportsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe(http.MethodGet, "/api/v1/products", http.StatusOK, 0)
	metrics.Observe(http.MethodGet, "/api/v1/products", http.StatusOK, 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/v1/products")
	if err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected requests=2, got %f", got)
	}

	count, err := fetchHistogramCount(mfs, "http_request_duration_seconds", "route", "/api/v1/products")
	if err != nil {
		t.Fatalf("fetch duration: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 observations, got %d", count)
	}
}

func TestHTTPMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)

	router := chi.NewRouter()
	router.Use(metrics.Middleware)
	router.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/abc-123", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/v1/orders/{orderId}")
	if err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected requests=1, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramCount(mfs []*dto.MetricFamily, name, label, value string) (uint64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleCount(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
