package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is the length of one paid term.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Valid reports whether c is a known cycle.
func (c BillingCycle) Valid() bool {
	return c == CycleMonthly || c == CycleYearly
}

// EndOf returns the end of a term that starts at start.
func (c BillingCycle) EndOf(start time.Time) time.Time {
	if c == CycleYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// EntitlementKind names a numeric plan ceiling.
type EntitlementKind string

const (
	EntitlementBranches EntitlementKind = "branches"
	EntitlementUsers    EntitlementKind = "users"
	EntitlementProducts EntitlementKind = "products"
)

// Entitlements are the numeric ceilings of a plan. 0 means unlimited.
type Entitlements struct {
	MaxBranches int
	MaxUsers    int
	MaxProducts int
}

// DefaultEntitlements apply to a store without an entitled subscription.
var DefaultEntitlements = Entitlements{
	MaxBranches: 1,
	MaxUsers:    3,
	MaxProducts: 50,
}

// Limit returns the ceiling for kind.
func (e Entitlements) Limit(kind EntitlementKind) int {
	switch kind {
	case EntitlementBranches:
		return e.MaxBranches
	case EntitlementUsers:
		return e.MaxUsers
	case EntitlementProducts:
		return e.MaxProducts
	}
	return 0
}

// Allow checks whether one more item of kind fits on top of current.
func (e Entitlements) Allow(kind EntitlementKind, current int) error {
	limit := e.Limit(kind)
	if limit > 0 && current >= limit {
		return &EntitlementError{Kind: kind, Limit: limit, Current: current}
	}
	return nil
}

// Plan is a purchasable billing tier. Subscriptions reference it by ID.
type Plan struct {
	ID           string
	Name         string
	Description  string
	Price        decimal.Decimal
	Currency     string
	Cycle        BillingCycle
	Entitlements Entitlements
	Features     map[string]bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasFeature reports whether the plan enables the named feature.
func (p Plan) HasFeature(name string) bool {
	return p.Features[name]
}
