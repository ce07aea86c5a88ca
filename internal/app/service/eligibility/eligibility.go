package eligibility

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/fatflowers/roulette/pkg/config"
)

// Reasons reported on Decision.
const (
	ReasonBirthday  = "birthday"
	ReasonTargeting = "targeting"
	ReasonRole      = "role"
	ReasonMinSpend  = "min_spent"
	ReasonMinOrders = "min_orders"
	ReasonRule      = "rule"
)

// Subject is everything known about the user at decision time. Dates are
// "YYYY-MM-DD" in the shop timezone.
type Subject struct {
	Today         string
	EligibleDate  string
	Roles         []string
	LifetimeSpend decimal.Decimal
	OrderCount    int
	// HasPurchaseData is false when no purchase history provider answered;
	// spend and order thresholds are then not applied.
	HasPurchaseData bool
}

type Rules struct {
	AllowedRoles []string
	MinSpent     decimal.Decimal
	MinOrders    int
	Rule         *Expression
}

type Decision struct {
	Allowed          bool
	BirthdayOverride bool
	Reason           string
}

// RulesFromConfig builds Rules and compiles the optional rule expression.
func RulesFromConfig(cfg config.TargetingConfig) (Rules, error) {
	rules := Rules{
		AllowedRoles: lo.Compact(cfg.AllowedRoles),
		MinSpent:     decimal.NewFromFloat(cfg.MinSpent),
		MinOrders:    cfg.MinOrders,
	}
	if cfg.Rule != "" {
		expr, err := CompileRule(cfg.Rule)
		if err != nil {
			return Rules{}, err
		}
		rules.Rule = expr
	}
	return rules, nil
}

// Evaluate applies the checks in order; the first failing one denies.
func Evaluate(s Subject, rules Rules) Decision {
	if s.EligibleDate != "" && s.EligibleDate == s.Today {
		return Decision{Allowed: true, BirthdayOverride: true, Reason: ReasonBirthday}
	}
	if len(rules.AllowedRoles) > 0 && !lo.Some(s.Roles, rules.AllowedRoles) {
		return Decision{Reason: ReasonRole}
	}
	if s.HasPurchaseData {
		if rules.MinSpent.IsPositive() && s.LifetimeSpend.LessThan(rules.MinSpent) {
			return Decision{Reason: ReasonMinSpend}
		}
		if rules.MinOrders > 0 && s.OrderCount < rules.MinOrders {
			return Decision{Reason: ReasonMinOrders}
		}
	}
	if rules.Rule != nil {
		ok, err := rules.Rule.Eval(s)
		if err != nil || !ok {
			return Decision{Reason: ReasonRule}
		}
	}
	return Decision{Allowed: true, Reason: ReasonTargeting}
}
