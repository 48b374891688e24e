package prompt

import (
	"fmt"
	"strings"

	"github.com/andrei-git-tower/last-word/internal/insight"
	"github.com/andrei-git-tower/last-word/internal/tenant"
	"github.com/andrei-git-tower/last-word/internal/turns"
)

// Assemble builds the full system instruction for one AI turn. Section order
// is fixed: voice, user context, rule injection, product context, style
// rules, phase instructions, retention paths, closing contract. Pure
// function, no I/O.
func Assemble(cfg tenant.Config, uc *insight.UserContext, ruleText string, phase turns.Phase) string {
	var sb strings.Builder

	voice := cfg.BrandVoice
	if voice == "" {
		voice = defaultVoice
	}
	sb.WriteString(voice)
	sb.WriteString("\n\n")

	if block := contextBlock(uc); block != "" {
		sb.WriteString(block)
		sb.WriteString("\n\n")
	}

	if ruleText != "" {
		sb.WriteString("Account-specific guidance you must follow for this customer:\n")
		sb.WriteString(ruleText)
		sb.WriteString("\n\n")
	}

	sb.WriteString(productBlock(cfg))
	sb.WriteString("\n\n")

	sb.WriteString(styleRules)
	sb.WriteString("\n\n")

	switch phase {
	case turns.Probe:
		sb.WriteString(probeInstructions)
	case turns.Flexible:
		sb.WriteString(flexibleInstructions)
	case turns.HardStop:
		sb.WriteString(hardStopInstructions)
	}
	sb.WriteString("\n\n")

	sb.WriteString(pathsBlock(cfg))
	sb.WriteString("\n\n")

	sb.WriteString(closingContract)

	return sb.String()
}

func contextBlock(uc *insight.UserContext) string {
	if uc == nil {
		return ""
	}
	var lines []string
	if uc.Email != "" {
		lines = append(lines, "- email: "+uc.Email)
	}
	if uc.Plan != "" {
		lines = append(lines, "- plan: "+uc.Plan)
	}
	if uc.AccountAge != nil {
		lines = append(lines, fmt.Sprintf("- customer for %d days", *uc.AccountAge))
	}
	if uc.Seats != nil {
		lines = append(lines, fmt.Sprintf("- seats: %d", *uc.Seats))
	}
	if uc.MRR != nil {
		lines = append(lines, fmt.Sprintf("- MRR: $%.2f", *uc.MRR))
	}
	if len(lines) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("What we know about this customer:\n")
	sb.WriteString(strings.Join(lines, "\n"))
	if uc.AccountAge != nil {
		sb.WriteString("\n")
		sb.WriteString(lifecycleGuidance(*uc.AccountAge))
	}
	return sb.String()
}

func productBlock(cfg tenant.Config) string {
	var sb strings.Builder
	sb.WriteString("The product: ")
	sb.WriteString(cfg.ProductDescription)
	if len(cfg.Competitors) > 0 {
		sb.WriteString("\nCompetitors customers sometimes leave for: ")
		sb.WriteString(strings.Join(cfg.Competitors, ", "))
	}
	if len(cfg.Plans) > 0 {
		sb.WriteString("\nAvailable plans: ")
		sb.WriteString(strings.Join(cfg.Plans, ", "))
	}
	return sb.String()
}

func pathsBlock(cfg tenant.Config) string {
	enabled := cfg.EnabledPaths()

	var sb strings.Builder
	sb.WriteString("Retention paths you may offer, and nothing beyond these:\n")
	for _, k := range enabled {
		sb.WriteString("- ")
		sb.WriteString(pathCopy[k])
		if offer := cfg.Paths[k].Offer; offer != "" {
			sb.WriteString(" Offer: ")
			sb.WriteString(offer)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
