package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("verify", "ok"))
	RecordTransition("verify", "")
	after := testutil.ToFloat64(transitions.WithLabelValues("verify", "ok"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestSetBucketSize(t *testing.T) {
	SetBucketSize("disposed", 7)
	if got := testutil.ToFloat64(bucketSize.WithLabelValues("disposed")); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordRefresh(true)
	ObserveLockWait("", 3*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"inspection_registry_refresh_total", "inspection_lifecycle_lock_wait_seconds"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}
