package processors

import (
	"fmt"

	"pawLingo/core"
)

// Interpreter sequences the four interpretation layers over a shared
// read-only catalog. It is safe for concurrent use; every call is
// independent of every other.
type Interpreter struct {
	catalog *core.Catalog
}

func NewInterpreter(catalog *core.Catalog) *Interpreter {
	return &Interpreter{catalog: catalog}
}

// Catalog exposes the shared catalog for collaborators (the matcher
// endpoint, the catalog listing).
func (it *Interpreter) Catalog() *core.Catalog {
	return it.catalog
}

// Interpret runs detection, combination analysis, context annotation and
// narrative synthesis in that fixed order. The layers are total
// functions over well-formed inputs and do no error handling of their
// own; this boundary is the only defensive one. Anything unexpected is
// converted into an InterpretationError carrying the fixed fallback
// narrative so a caller never sees a crash.
func (it *Interpreter) Interpret(signalIDs []string, ctx core.Context) (result *core.InterpretationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = core.NewInterpretationError(fmt.Sprintf("%v", r))
		}
	}()

	if it.catalog == nil {
		return nil, core.NewInterpretationError("signal catalog not loaded")
	}

	detection := DetectSignals(it.catalog, signalIDs)
	combinations := AnalyzeCombinations(signalIDs, detection)
	contextual := AnnotateContext(detection, ctx)
	narrative := SynthesizeNarrative(detection, combinations, contextual)

	return &core.InterpretationResult{
		Detection:    detection,
		Combinations: combinations,
		Context:      contextual,
		Narrative:    narrative,
		Summary: core.Summary{
			SignalCount: detection.Total,
			Confidence:  narrative.Confidence,
			Narrative:   narrative.Narrative,
		},
	}, nil
}
