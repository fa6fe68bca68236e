// Package planner picks the GPU memory-utilization ratio handed to the
// inference engine. The policy is an ordered rule table: the first rule whose
// family substring occurs in the model id and whose threshold is exceeded by
// the available memory wins; otherwise the default rule applies.
//
//	ratio = (cap - reserved) / availableMB, truncated to two decimals
//
// where cap is the matched rule's threshold, or the default cap.
package planner

import (
	"math"
	"strings"

	"github.com/rs/zerolog"

	"modelrun/pkg/types"
)

// DefaultRuleName identifies the fallback rule in a UtilizationPlan.
const DefaultRuleName = "default"

// Rule is one tier of the utilization policy.
type Rule struct {
	Family      string `json:"family"`
	ThresholdMB int    `json:"threshold_mb"`
	ReservedMB  int    `json:"reserved_mb"`
}

// Matches reports whether the rule applies: family substring present and availableMB strictly above the threshold.
func (r Rule) Matches(modelID string, availableMB int) bool {
	return strings.Contains(modelID, r.Family) && availableMB > r.ThresholdMB
}

// Fallback is applied when no rule matches.
type Fallback struct {
	CapMB      int `json:"cap_mb"`
	ReservedMB int `json:"reserved_mb"`
}

// DefaultRules is the built-in tier table. Order matters.
var DefaultRules = []Rule{
	{Family: "mixtral-8x7b-gptq", ThresholdMB: 32000, ReservedMB: 1000},
	{Family: "yi-34b-gptq", ThresholdMB: 40000, ReservedMB: 1000},
	{Family: "70b", ThresholdMB: 44000, ReservedMB: 1000},
	{Family: "8b", ThresholdMB: 19000, ReservedMB: 1000},
	{Family: "pro-mistral-7b", ThresholdMB: 18000, ReservedMB: 1000},
}

// DefaultFallback caps unknown families at 12000 MB.
var DefaultFallback = Fallback{CapMB: 12000, ReservedMB: 1000}

// Planner evaluates a rule table. It is safe for concurrent use.
type Planner struct {
	rules    []Rule
	fallback Fallback
	log      zerolog.Logger
}

// New builds a planner. Empty rules select DefaultRules; a zero fallback selects DefaultFallback.
func New(rules []Rule, fallback Fallback, logger *zerolog.Logger) *Planner {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	if fallback == (Fallback{}) {
		fallback = DefaultFallback
	}
	p := &Planner{rules: append([]Rule(nil), rules...), fallback: fallback, log: zerolog.Nop()}
	if logger != nil {
		p.log = logger.With().Str("component", "planner").Logger()
	}
	return p
}

// Rules returns a copy of the rule table in evaluation order.
func (p *Planner) Rules() []Rule { return append([]Rule(nil), p.rules...) }

// Compute returns the ratio for modelID given availableMB.
//
// The default rule is not clamped: with little free memory it yields ratios
// above 1. Such values are logged and returned unchanged.
func (p *Planner) Compute(modelID string, availableMB int) types.UtilizationPlan {
	capMB, reserved, name := p.fallback.CapMB, p.fallback.ReservedMB, DefaultRuleName
	for _, r := range p.rules {
		if r.Matches(modelID, availableMB) {
			capMB, reserved, name = r.ThresholdMB, r.ReservedMB, r.Family
			break
		}
	}
	if availableMB <= 0 {
		p.log.Warn().Str("model", modelID).Int("available_mb", availableMB).Msg("no free memory, ratio forced to 0")
		return types.UtilizationPlan{Ratio: 0, Rule: name}
	}
	ratio := truncate2(float64(capMB-reserved) / float64(availableMB))
	if ratio <= 0 || ratio > 1 {
		p.log.Warn().Str("model", modelID).Int("available_mb", availableMB).Float64("ratio", ratio).Str("rule", name).
			Msg("utilization ratio outside (0,1]")
	}
	return types.UtilizationPlan{Ratio: ratio, Rule: name}
}

var defaultPlanner = New(nil, Fallback{}, nil)

// ComputeRatio evaluates the built-in policy.
func ComputeRatio(modelID string, availableMB int) float64 {
	return defaultPlanner.Compute(modelID, availableMB).Ratio
}

// truncate2 drops everything past the second decimal. The epsilon keeps
// values such as 0.29 (stored as 0.28999...) from losing a cent.
func truncate2(x float64) float64 {
	return math.Trunc(x*100+math.Copysign(1e-9, x)) / 100
}
