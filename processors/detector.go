package processors

import (
	"pawLingo/core"
)

// DetectSignals is layer 1: it resolves caller-supplied signal ids
// against the catalog. Unknown ids are dropped silently (upstream vision
// output is noisy and partial by nature), input order is preserved, and
// repeated ids stay as independent detections.
func DetectSignals(catalog *core.Catalog, signalIDs []string) core.DetectionResult {
	signals := make([]core.Signal, 0, len(signalIDs))
	for _, id := range signalIDs {
		if s, ok := catalog.Lookup(id); ok {
			signals = append(signals, s)
		}
	}
	return core.DetectionResult{Signals: signals, Total: len(signals)}
}
