package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// gatherCounter は指定名のカウンタ値を取得するヘルパー。
func gatherCounter(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total, true
		}
	}
	return 0, false
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordSearch_IncrementsCounter は検索カウンタが増加することを検証する。
func TestRecordSearch_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSearch()
	c.RecordSearch()

	val, found := gatherCounter(t, reg, "setlist_catalog_search_total")
	if !found {
		t.Fatal("setlist_catalog_search_total metric not found")
	}
	if val != 2 {
		t.Errorf("catalog_search_total = %v, want 2", val)
	}
}

// TestRecordCacheHitMiss_SeparateKinds はキャッシュヒット/ミスがkind別に記録されることを検証する。
func TestRecordCacheHitMiss_SeparateKinds(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit("search")
	c.RecordCacheHit("artist")
	c.RecordCacheHit("search")
	c.RecordCacheMiss("search")

	hits, found := gatherCounter(t, reg, "setlist_catalog_cache_hits_total")
	if !found {
		t.Fatal("setlist_catalog_cache_hits_total metric not found")
	}
	if hits != 3 {
		t.Errorf("cache_hits_total = %v, want 3", hits)
	}

	misses, found := gatherCounter(t, reg, "setlist_catalog_cache_misses_total")
	if !found {
		t.Fatal("setlist_catalog_cache_misses_total metric not found")
	}
	if misses != 1 {
		t.Errorf("cache_misses_total = %v, want 1", misses)
	}
}

// TestRecordTokenFailure_IncrementsCounter はトークン取得失敗カウンタが増加することを検証する。
func TestRecordTokenFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenFailure()

	val, found := gatherCounter(t, reg, "setlist_catalog_token_fail_total")
	if !found {
		t.Fatal("setlist_catalog_token_fail_total metric not found")
	}
	if val != 1 {
		t.Errorf("token_fail_total = %v, want 1", val)
	}
}

// TestRecordCatalogHTTPStatus_LabelsByStatus はステータスコード別に記録されることを検証する。
func TestRecordCatalogHTTPStatus_LabelsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCatalogHTTPStatus(200)
	c.RecordCatalogHTTPStatus(200)
	c.RecordCatalogHTTPStatus(429)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != "setlist_catalog_http_status_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() != "status_code" {
					continue
				}
				val := m.GetCounter().GetValue()
				switch label.GetValue() {
				case "200":
					if val != 2 {
						t.Errorf("status 200 count = %v, want 2", val)
					}
				case "429":
					if val != 1 {
						t.Errorf("status 429 count = %v, want 1", val)
					}
				}
			}
		}
	}
}

// TestRecordCatalogLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordCatalogLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCatalogLatency(150 * time.Millisecond)
	c.RecordCatalogLatency(300 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "setlist_catalog_latency_seconds" {
			found = true
			count := mf.GetMetric()[0].GetHistogram().GetSampleCount()
			if count != 2 {
				t.Errorf("latency sample count = %d, want 2", count)
			}
		}
	}
	if !found {
		t.Error("setlist_catalog_latency_seconds metric not found")
	}
}

// TestHandler_ServesPrometheusFormat は/metricsハンドラーがPrometheus形式で応答することを検証する。
func TestHandler_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSearch()

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("failed to GET metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "setlist_catalog_search_total") {
		t.Errorf("metrics output does not contain setlist_catalog_search_total:\n%s", string(body))
	}
}
