package processors

import (
	"fmt"
	"strings"

	"pawLingo/core"
)

// AnalyzeCombinations is layer 2: for every detected signal it checks
// which of the signal's declared partners also appear in the caller's
// original id list. Signals without a qualifying partner contribute no
// record at all. Combination order follows detection order; partner
// order follows the catalog declaration.
func AnalyzeCombinations(signalIDs []string, detection core.DetectionResult) core.CombinationResult {
	present := make(map[string]bool, len(signalIDs))
	for _, id := range signalIDs {
		present[id] = true
	}

	combinations := make([]core.Combination, 0)
	for _, s := range detection.Signals {
		var partners []string
		for _, p := range s.CombinationPartners {
			if present[p] {
				partners = append(partners, p)
			}
		}
		if len(partners) == 0 {
			continue
		}
		combinations = append(combinations, core.Combination{
			Primary:  s.ID,
			Partners: partners,
			Note:     fmt.Sprintf("%s is reinforced by: %s", s.DisplayName, strings.Join(partners, ", ")),
		})
	}
	return core.CombinationResult{Combinations: combinations, Total: len(combinations)}
}
