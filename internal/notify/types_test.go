package notify

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRouteFires_DecisionTable(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		isError bool
		want    bool
	}{
		{"disabled error", Route{Enabled: false, OnFailure: true, OnSuccess: true}, true, false},
		{"disabled success", Route{Enabled: false, OnFailure: true, OnSuccess: true}, false, false},
		{"error not routed", Route{Enabled: true, OnFailure: false, OnSuccess: true}, true, false},
		{"error routed", Route{Enabled: true, OnFailure: true, OnSuccess: false}, true, true},
		{"success not routed", Route{Enabled: true, OnFailure: true, OnSuccess: false}, false, false},
		{"success routed", Route{Enabled: true, OnFailure: false, OnSuccess: true}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.route.Fires(tt.isError); got != tt.want {
				t.Errorf("Fires(%v) = %v, want %v", tt.isError, got, tt.want)
			}
		})
	}
}

func TestRouteFires_DisabledNeverFires(t *testing.T) {
	for _, onSuccess := range []bool{true, false} {
		for _, onFailure := range []bool{true, false} {
			for _, isError := range []bool{true, false} {
				r := Route{Enabled: false, OnSuccess: onSuccess, OnFailure: onFailure}
				if r.Fires(isError) {
					t.Errorf("disabled route fired: %+v isError=%v", r, isError)
				}
			}
		}
	}
}

func TestOutcomeMessage_Failure(t *testing.T) {
	o := Failure("Pipeline Execution Failed", errors.New("adf: 503 service unavailable"))
	msg := o.Message()

	if msg.Subject != "[ERROR] Pipeline Execution Failed" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.Body != "adf: 503 service unavailable" {
		t.Errorf("unexpected body %q", msg.Body)
	}
	if msg.Text() != "[ERROR] adf: 503 service unavailable" {
		t.Errorf("unexpected text %q", msg.Text())
	}
}

func TestOutcomeMessage_SuccessWithRunID(t *testing.T) {
	o := Success("Pipeline Execution Successful", "ADF Run ID: r-1\nDatabricks Job ID: 7")
	o.RunID = "abc"
	msg := o.Message()

	if msg.Subject != "[SUCCESS] Pipeline Execution Successful" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if !strings.HasPrefix(msg.Body, "ADF Run ID: r-1") || !strings.HasSuffix(msg.Body, "Run ID: abc") {
		t.Errorf("unexpected body %q", msg.Body)
	}
}

func TestTransportError_Unwraps(t *testing.T) {
	inner := errors.New("connection refused")
	err := fmt.Errorf("dispatch: %w", &TransportError{Channel: KindEmail, Err: inner})

	if !IsTransportError(err) {
		t.Error("expected transport error")
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to reach the inner error")
	}
}
