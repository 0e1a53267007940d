package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAttempts(t *testing.T) {
	before := testutil.ToFloat64(AttemptsTotal.WithLabelValues("test.op", "failure"))
	ObserveAttemptFailure("test.op", 200*time.Millisecond, false)
	ObserveAttemptFailure("test.op", 0, true)
	after := testutil.ToFloat64(AttemptsTotal.WithLabelValues("test.op", "failure"))

	if after-before != 2 {
		t.Errorf("expected 2 failures recorded, got %v", after-before)
	}
}

func TestObserveAlert(t *testing.T) {
	before := testutil.ToFloat64(AlertsTotal.WithLabelValues("slack", "sent"))
	ObserveAlert("slack", "sent")
	if got := testutil.ToFloat64(AlertsTotal.WithLabelValues("slack", "sent")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

func TestWriteTextfile(t *testing.T) {
	ObserveRun(true)

	path := filepath.Join(t.TempDir(), "conduit.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `conduit_pipeline_runs_total{result="success"}`) {
		t.Errorf("textfile missing run counter:\n%s", data)
	}
}
