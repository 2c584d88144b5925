// Package billing maps subscription plans to the limits they entitle a
// business to. Plan changes arrive via the Stripe webhook; enforcement
// happens at booking-creation and barber-creation time.
package billing

import "strings"

// Unlimited marks a plan limit with no cap.
const Unlimited = -1

type Plan struct {
	Name                string
	MaxBarbers          int
	MaxBookingsPerMonth int
	TrialDays           int
}

var plans = map[string]Plan{
	"trial":      {Name: "trial", MaxBarbers: 2, MaxBookingsPerMonth: 50, TrialDays: 14},
	"basic":      {Name: "basic", MaxBarbers: 5, MaxBookingsPerMonth: 200},
	"pro":        {Name: "pro", MaxBarbers: 15, MaxBookingsPerMonth: Unlimited},
	"enterprise": {Name: "enterprise", MaxBarbers: Unlimited, MaxBookingsPerMonth: Unlimited},
}

// PlanFor resolves a plan by name. Unknown names fall back to trial so a
// missing or corrupt subscription record never grants unlimited bookings.
func PlanFor(name string) Plan {
	p, ok := plans[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return plans["trial"]
	}
	return p
}

// KnownPlan reports whether name is a plan this system sells.
func KnownPlan(name string) bool {
	_, ok := plans[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// AllowsBookings reports whether count bookings this month stays within the
// plan's cap.
func (p Plan) AllowsBookings(count int) bool {
	return p.MaxBookingsPerMonth == Unlimited || count < p.MaxBookingsPerMonth
}

// AllowsBarbers reports whether adding one more barber to count stays within
// the plan's cap.
func (p Plan) AllowsBarbers(count int) bool {
	return p.MaxBarbers == Unlimited || count < p.MaxBarbers
}
