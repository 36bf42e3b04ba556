package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// CancellationPolicy decides whether a confirmed booking may still be cancelled.
type CancellationPolicy interface {
	AllowCancel(b domain.BookingView, now time.Time) bool
}

// CancellationPolicyFunc adapts a function to CancellationPolicy.
type CancellationPolicyFunc func(b domain.BookingView, now time.Time) bool

func (f CancellationPolicyFunc) AllowCancel(b domain.BookingView, now time.Time) bool {
	return f(b, now)
}

// AnytimeCancellation allows cancelling up to the moment of check-in and after.
var AnytimeCancellation = CancellationPolicyFunc(func(domain.BookingView, time.Time) bool { return true })

// NoticePolicy requires cancellations to arrive at least MinNotice before the stay starts.
type NoticePolicy struct {
	Name      string
	MinNotice time.Duration
}

func (p NoticePolicy) AllowCancel(b domain.BookingView, now time.Time) bool {
	return !now.Add(p.MinNotice).After(b.Stay.Start)
}

var (
	FlexiblePolicy = NoticePolicy{Name: "flexible", MinNotice: 24 * time.Hour}
	ModeratePolicy = NoticePolicy{Name: "moderate", MinNotice: 5 * 24 * time.Hour}
	StrictPolicy   = NoticePolicy{Name: "strict", MinNotice: 7 * 24 * time.Hour}
)

// PolicyByName resolves a configured policy name. Empty means anytime.
func PolicyByName(name string) (CancellationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "anytime":
		return AnytimeCancellation, nil
	case FlexiblePolicy.Name:
		return FlexiblePolicy, nil
	case ModeratePolicy.Name:
		return ModeratePolicy, nil
	case StrictPolicy.Name:
		return StrictPolicy, nil
	default:
		return nil, fmt.Errorf("unknown cancellation policy %q", name)
	}
}
