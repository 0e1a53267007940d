package retry

import (
	"math"
	"testing"
	"time"
)

func TestPolicyDelay_Formula(t *testing.T) {
	p := Policy{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        1 * time.Second,
		ExponentialBase: 2,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
		{50, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicyDelay_MatchesClosedForm(t *testing.T) {
	p := Policy{
		MaxAttempts:     5,
		InitialDelay:    250 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 3,
	}

	for n := 1; n <= 12; n++ {
		raw := float64(p.InitialDelay) * math.Pow(p.ExponentialBase, float64(n-1))
		want := time.Duration(math.Min(float64(p.MaxDelay), raw))
		if got := p.Delay(n); got != want {
			t.Errorf("Delay(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestPolicyDelay_HugeAttemptDoesNotOverflow(t *testing.T) {
	p := DefaultPolicy()
	if got := p.Delay(100000); got != p.MaxDelay {
		t.Errorf("expected cap %s, got %s", p.MaxDelay, got)
	}
}

func TestPolicyDelay_IsPure(t *testing.T) {
	p := DefaultPolicy()
	first := p.Delay(3)
	second := p.Delay(3)
	if first != second {
		t.Errorf("expected identical delays, got %s and %s", first, second)
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy should be valid: %v", err)
	}

	invalid := []Policy{
		{MaxAttempts: 0, InitialDelay: time.Second, MaxDelay: time.Second, ExponentialBase: 2},
		{MaxAttempts: 1, InitialDelay: 0, MaxDelay: time.Second, ExponentialBase: 2},
		{MaxAttempts: 1, InitialDelay: 2 * time.Second, MaxDelay: time.Second, ExponentialBase: 2},
		{MaxAttempts: 1, InitialDelay: time.Second, MaxDelay: time.Second, ExponentialBase: 1},
	}
	for i, p := range invalid {
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, p)
		}
	}
}
