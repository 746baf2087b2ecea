package processors

import (
	"fmt"
	"strings"

	"pawLingo/core"
)

// NoSignalsNarrative is the fixed narrative for an empty detection set.
const NoSignalsNarrative = "No clear signals detected to interpret."

// Confidence scoring constants. Any detected signal guarantees the base;
// the empty case is pinned to zero on purpose, the two are not symmetric.
const (
	baseConfidence        = 0.70
	combinationConfidence = 0.10
	placeConfidence       = 0.05
	maxConfidence         = 0.95
)

// SynthesizeNarrative is layer 4: a deterministic, template-based
// composition of the previous layer outputs. The primary signal is the
// first detected one, in caller order.
func SynthesizeNarrative(detection core.DetectionResult, combinations core.CombinationResult, contextual core.ContextResult) core.NarrativeResult {
	if len(detection.Signals) == 0 {
		return core.NarrativeResult{Narrative: NoSignalsNarrative, Confidence: 0.0}
	}

	primary := detection.Signals[0]
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Your dog is showing %s.", primary.DisplayName))

	if combinations.Total > 0 {
		b.WriteString(" This signal is reinforced by other signals present at the same time.")
	}

	ctx := contextual.Context
	if ctx.Place != core.UnknownPlace {
		if ctx.Interaction != core.UnknownInteraction {
			b.WriteString(fmt.Sprintf(" This is happening at %s while interacting %s.", ctx.Place, ctx.Interaction))
		} else {
			b.WriteString(fmt.Sprintf(" This is happening at %s.", ctx.Place))
		}
	}

	// Close with the primary signal's canned interpretation, looked up in
	// the contextualized set. Omitted if the primary is somehow absent.
	for _, s := range contextual.Signals {
		if s.ID == primary.ID {
			b.WriteString(" " + s.CanonicalInterpretation)
			break
		}
	}

	confidence := baseConfidence + combinationConfidence*float64(combinations.Total)
	if ctx.Place != core.UnknownPlace {
		confidence += placeConfidence
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return core.NarrativeResult{Narrative: b.String(), Confidence: confidence}
}
