package rag

import (
	"fmt"
	"strings"

	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// Tier selects the system prompt specialization level.
type Tier string

// Tier values, ordered by specialization. Each tier's system prompt is a
// strict superset of the guidance of the tier below it.
const (
	TierBasic        Tier = "basic"
	TierIntermediate Tier = "intermediate"
	TierExpert       Tier = "expert"
)

// DefaultTier is used when the caller does not specify one.
const DefaultTier = TierBasic

// IsValid checks if the tier is one of the supported values.
func (t Tier) IsValid() bool {
	return t == TierBasic || t == TierIntermediate || t == TierExpert
}

// Prompt is an assembled system/user prompt pair with a rough token estimate
// (chars/4 heuristic, not a real tokenizer).
type Prompt struct {
	System          string
	User            string
	EstimatedTokens int
	DocumentsFound  int
}

const systemBasic = `You are an Excel knowledge assistant.
Answer questions about Excel formulas, functions, and spreadsheet operations.
Explain concepts step by step in plain language and include a short worked example where it helps.
If you are not sure of an answer, say so instead of guessing.`

const systemIntermediateExtra = `
You can additionally rely on the following guidance:
- Prefer modern functions (XLOOKUP, FILTER, LET) over legacy equivalents when both solve the problem, and say why.
- Point out common pitfalls: absolute vs relative references, volatile functions, implicit intersection.
- When a formula grows complex, show how to decompose it with helper columns or LET.`

const systemExpertExtra = `
At the expert level also:
- Discuss performance characteristics of suggested formulas on large workbooks and offer faster alternatives.
- Cover edge cases explicitly: empty cells, error propagation, locale-dependent separators and date handling.
- When relevant, mention Power Query or VBA as an escalation path and the tradeoffs of each.`

// systemPrompt returns the tier's system prompt. Tiers are built by
// concatenation so the superset relation holds by construction.
func systemPrompt(t Tier) string {
	switch t {
	case TierExpert:
		return systemBasic + systemIntermediateExtra + systemExpertExtra
	case TierIntermediate:
		return systemBasic + systemIntermediateExtra
	default:
		return systemBasic
	}
}

const userInstructions = `Instructions:
- Base your answer on the reference knowledge above when it is relevant.
- If the reference knowledge does not cover the question, answer from general Excel expertise and say so.
- Keep the answer focused on the question asked.`

// buildUserPrompt assembles the user prompt from the retrieved context block,
// caller-supplied context, an attachment notice, the question, and the fixed
// instruction block. Empty sections are omitted.
func buildUserPrompt(enhancedContext, callerContext, query string, attachments int) string {
	var b strings.Builder

	if enhancedContext != "" {
		b.WriteString(enhancedContext)
		b.WriteString("\n\n")
	}
	if callerContext != "" {
		b.WriteString("Additional context from the user:\n")
		b.WriteString(callerContext)
		b.WriteString("\n\n")
	}
	if attachments > 0 {
		fmt.Fprintf(&b, "The user attached %d file(s) to this conversation.\n\n", attachments)
	}

	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(userInstructions)

	return b.String()
}

// estimatePromptTokens applies the chars/4 heuristic to the whole prompt pair.
func estimatePromptTokens(system, user string) int {
	return domdoc.EstimateTokens(system + user)
}
