package domain

import (
	"errors"
	"testing"
	"time"
)

func TestMagicLink_Usable(t *testing.T) {
	exp := time.Date(2026, 4, 1, 9, 15, 0, 0, time.UTC)
	used := exp.Add(-time.Minute)

	cases := []struct {
		name string
		link MagicLink
		at   time.Time
		want bool
	}{
		{"before expiry", MagicLink{ExpiresAt: exp}, exp.Add(-time.Second), true},
		{"at expiry", MagicLink{ExpiresAt: exp}, exp, true},
		{"after expiry", MagicLink{ExpiresAt: exp}, exp.Add(time.Second), false},
		{"used", MagicLink{ExpiresAt: exp, UsedAt: &used}, used, false},
	}
	for _, tc := range cases {
		if got := tc.link.Usable(tc.at); got != tc.want {
			t.Errorf("%s: Usable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRateLimitError(t *testing.T) {
	var err error = &RateLimitError{RetryAfter: time.Minute}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("RateLimitError should match ErrRateLimited")
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != time.Minute {
		t.Errorf("errors.As = %+v", rl)
	}
}
