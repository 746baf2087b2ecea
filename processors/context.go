package processors

import (
	"pawLingo/core"
)

// AnnotateContext is layer 3: it normalizes the caller's context and
// attaches it to the detected signal set. It never filters or reorders
// signals; any context-driven reasoning belongs to layer 4.
func AnnotateContext(detection core.DetectionResult, ctx core.Context) core.ContextResult {
	return core.ContextResult{
		Context: ctx.Normalized(),
		Signals: detection.Signals,
	}
}
