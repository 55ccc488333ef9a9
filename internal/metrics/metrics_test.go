package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/videos", "200"))
	RecordHTTPRequest("GET", "/api/v1/videos", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/videos", "200"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}

	RecordHTTPRequest("GET", "", 404, time.Millisecond)
	if testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")) < 1 {
		t.Fatal("expected unmatched route label")
	}
}

func TestRecordToggle(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		err    error
		result string
	}{
		{name: "activated", active: true, result: "on"},
		{name: "deactivated", active: false, result: "off"},
		{name: "failed", err: errors.New("boom"), result: "error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := RelationToggles.WithLabelValues("video_like", tc.result)
			before := testutil.ToFloat64(c)
			RecordToggle("video_like", tc.active, tc.err)
			if testutil.ToFloat64(c)-before != 1 {
				t.Fatalf("expected %s counter to increase", tc.result)
			}
		})
	}
}
