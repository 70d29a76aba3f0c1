package account

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func ptr(t time.Time) *time.Time { return &t }

func TestIsTrialExpired(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		acc  Account
		want bool
	}{
		{
			name: "trial within window",
			acc:  Account{Tier: TierTrial, TrialEnd: ptr(now.Add(time.Hour))},
			want: false,
		},
		{
			name: "trial past window",
			acc:  Account{Tier: TierTrial, TrialEnd: ptr(now.Add(-time.Hour))},
			want: true,
		},
		{
			name: "trial without end date never expires",
			acc:  Account{Tier: TierTrial},
			want: false,
		},
		{
			name: "paid tier never trial-expires",
			acc:  Account{Tier: TierMonthly, TrialEnd: ptr(now.Add(-time.Hour))},
			want: false,
		},
		{
			name: "end date exactly now is not expired",
			acc:  Account{Tier: TierTrial, TrialEnd: ptr(now)},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.acc.IsTrialExpired(now); got != tc.want {
				t.Fatalf("IsTrialExpired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsSubscriptionActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		acc  Account
		want bool
	}{
		{
			name: "live trial counts as active",
			acc:  Account{Tier: TierTrial, TrialEnd: ptr(now.Add(time.Hour))},
			want: true,
		},
		{
			name: "expired trial is inactive",
			acc:  Account{Tier: TierTrial, TrialEnd: ptr(now.Add(-time.Hour))},
			want: false,
		},
		{
			name: "lifetime is always active",
			acc:  Account{Tier: TierLifetime},
			want: true,
		},
		{
			name: "monthly within window",
			acc:  Account{Tier: TierMonthly, SubscriptionEnd: ptr(now.Add(24 * time.Hour))},
			want: true,
		},
		{
			name: "yearly past window",
			acc:  Account{Tier: TierYearly, SubscriptionEnd: ptr(now.Add(-time.Minute))},
			want: false,
		},
		{
			name: "paid tier without end date is inactive",
			acc:  Account{Tier: TierMonthly},
			want: false,
		},
		{
			name: "suspended status does not override live window",
			acc:  Account{Tier: TierMonthly, Status: StatusSuspended, SubscriptionEnd: ptr(now.Add(time.Hour))},
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.acc.IsSubscriptionActive(now); got != tc.want {
				t.Fatalf("IsSubscriptionActive() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanAddFollow(t *testing.T) {
	a := Account{MaxFollows: 5, CurrentFollows: 4}
	if !a.CanAddFollow() {
		t.Fatalf("expected quota to admit one more follow")
	}
	a.CurrentFollows = 5
	if a.CanAddFollow() {
		t.Fatalf("expected quota to be exhausted")
	}
}

func TestGrantTrial(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	var a Account
	a.GrantTrial(now, 3, 5)

	if a.Tier != TierTrial {
		t.Fatalf("tier = %q, want %q", a.Tier, TierTrial)
	}
	if a.TrialStart == nil || !a.TrialStart.Equal(now) {
		t.Fatalf("trial start = %v, want %v", a.TrialStart, now)
	}
	wantEnd := now.Add(72 * time.Hour)
	if a.TrialEnd == nil || !a.TrialEnd.Equal(wantEnd) {
		t.Fatalf("trial end = %v, want %v", a.TrialEnd, wantEnd)
	}
	if a.MaxFollows != 5 {
		t.Fatalf("max follows = %d, want 5", a.MaxFollows)
	}
	if a.IsTrialExpired(now.Add(71 * time.Hour)) {
		t.Fatalf("trial expired one hour early")
	}
	if !a.IsTrialExpired(now.Add(73 * time.Hour)) {
		t.Fatalf("trial still live one hour after the window")
	}
}

// Entitlement properties that must hold for any combination of tier and
// window offsets.
func TestEntitlementProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	genOffset := gen.Int64Range(-30*24*3600, 30*24*3600)

	properties.Property("lifetime accounts are active at any instant", prop.ForAll(
		func(offset int64) bool {
			a := Account{Tier: TierLifetime}
			return a.IsSubscriptionActive(now.Add(time.Duration(offset) * time.Second))
		},
		genOffset,
	))

	properties.Property("trial activity matches trial expiry", prop.ForAll(
		func(endOffset, checkOffset int64) bool {
			end := now.Add(time.Duration(endOffset) * time.Second)
			a := Account{Tier: TierTrial, TrialEnd: &end}
			at := now.Add(time.Duration(checkOffset) * time.Second)
			return a.IsSubscriptionActive(at) == !a.IsTrialExpired(at)
		},
		genOffset, genOffset,
	))

	properties.Property("paid activity is monotone in end date", prop.ForAll(
		func(endOffset, extension int64) bool {
			if extension < 0 {
				extension = -extension
			}
			end := now.Add(time.Duration(endOffset) * time.Second)
			later := end.Add(time.Duration(extension) * time.Second)
			a := Account{Tier: TierMonthly, SubscriptionEnd: &end}
			b := Account{Tier: TierMonthly, SubscriptionEnd: &later}
			// extending a live subscription can never deactivate it
			if a.IsSubscriptionActive(now) && !b.IsSubscriptionActive(now) {
				return false
			}
			return true
		},
		genOffset, genOffset,
	))

	properties.TestingRun(t)
}
