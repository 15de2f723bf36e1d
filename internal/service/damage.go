package service

import (
	"strings"

	"packloop-client/internal/domain"
)

// Verdict thresholds from the platform's damage rules. Crossing any single
// rule marks the item damaged.
const (
	maxGoodPoints     = 12
	maxHeavyScratches = 3
	maxSmallDents     = 3
	maxLargeDents     = 1
	maxSmallCracks    = 1
)

// AssessDamage converts per-face issue selections and a damage policy into a
// total point score and a binary condition verdict. Pure and deterministic;
// safe to call on every selection change. The server recomputes the same
// assessment authoritatively during the check phase.
//
// A policy table that has not loaded yet yields {0, good}: the preview must
// never block on missing policy data. Unknown issue tags score zero points
// and count toward no rule.
func AssessDamage(observations []domain.DamageObservation, policy domain.DamagePolicy) domain.DamageAssessment {
	if len(policy) == 0 {
		return domain.DamageAssessment{TotalPoints: 0, Condition: domain.ConditionGood}
	}

	total := 0
	counts := make(map[string]int)
	for _, obs := range observations {
		issue := strings.TrimSpace(obs.Issue)
		if issue == "" || issue == domain.IssueNone {
			continue
		}
		total += policy.Points(issue)
		counts[issue]++
	}

	damaged := total > maxGoodPoints ||
		counts[domain.IssueScratchHeavy] > maxHeavyScratches ||
		counts[domain.IssueDentSmall] > maxSmallDents ||
		counts[domain.IssueDentLarge] > maxLargeDents ||
		(counts[domain.IssueDentLarge] > 0 && counts[domain.IssueDentSmall] > 0) ||
		counts[domain.IssueCrackSmall] > maxSmallCracks ||
		counts[domain.IssueCrackLarge] > 0 ||
		counts[domain.IssueDeformed] > 0 ||
		counts[domain.IssueBroken] > 0

	condition := domain.ConditionGood
	if damaged {
		condition = domain.ConditionDamaged
	}
	return domain.DamageAssessment{TotalPoints: total, Condition: condition}
}
