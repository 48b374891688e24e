package rules

import (
	"sort"
	"strconv"
	"strings"

	"github.com/andrei-git-tower/last-word/internal/insight"
)

// Condition compares one user-context attribute against a literal value.
type Condition struct {
	Variable string `json:"variable"`
	Operator string `json:"operator"` // ==, !=, >, <, >=, <=, contains
	Value    string `json:"value"`
}

// Rule injects account-specific guidance into the prompt when its conditions
// match the caller's user context. Lower priority evaluates first.
type Rule struct {
	Priority   int         `json:"priority"`
	Logic      string      `json:"logic"` // "AND" or "OR"
	Conditions []Condition `json:"conditions"`
	PromptText string      `json:"prompt_text"`
}

// Match evaluates rules in priority order and returns the first matching
// rule's prompt text. A rule with no conditions never matches; an absent
// context attribute fails any condition it appears in.
func Match(ruleset []Rule, uc *insight.UserContext) (string, bool) {
	ordered := make([]Rule, len(ruleset))
	copy(ordered, ruleset)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, r := range ordered {
		if matches(r, uc) {
			return r.PromptText, true
		}
	}
	return "", false
}

func matches(r Rule, uc *insight.UserContext) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	any := false
	for _, c := range r.Conditions {
		ok := evaluate(c, uc)
		if strings.EqualFold(r.Logic, "OR") {
			any = any || ok
			continue
		}
		// AND is the default logic.
		if !ok {
			return false
		}
	}
	if strings.EqualFold(r.Logic, "OR") {
		return any
	}
	return true
}

func evaluate(c Condition, uc *insight.UserContext) bool {
	attr, ok := uc.Attr(c.Variable)
	if !ok {
		return false
	}

	if c.Operator == "contains" {
		s, ok := attr.(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(c.Value))
	}

	switch v := attr.(type) {
	case string:
		switch c.Operator {
		case "==":
			return v == c.Value
		case "!=":
			return v != c.Value
		}
		return false
	case float64:
		want, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		if err != nil {
			return false
		}
		switch c.Operator {
		case "==":
			return v == want
		case "!=":
			return v != want
		case ">":
			return v > want
		case "<":
			return v < want
		case ">=":
			return v >= want
		case "<=":
			return v <= want
		}
	}
	return false
}
