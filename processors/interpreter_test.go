package processors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawLingo/core"
)

// sampleCatalog builds the three-signal reference catalog used across
// the interpretation tests. Only play_bow declares a partner, so a
// play_bow + cola_mueve_rapido input yields exactly one combination.
func sampleCatalog(t *testing.T) *core.Catalog {
	t.Helper()
	raw := []map[string]any{
		{
			"id":             "play_bow",
			"name":           "Play Bow",
			"category":       "play, joy",
			"combinations":   []string{"cola_mueve_rapido"},
			"description":    "Front legs stretched forward, chest lowered, rear held high",
			"interpretation": "An unmistakable invitation to play.",
			"intensity":      5,
		},
		{
			"id":             "cola_mueve_rapido",
			"name":           "Rapid Tail Wag",
			"category":       "joy",
			"combinations":   []string{},
			"description":    "Tail swings wide, very fast",
			"interpretation": "High positive excitement directed at somebody familiar.",
			"intensity":      4,
		},
		{
			"id":             "orejas_atras",
			"name":           "Ears Pinned Back",
			"category":       "fear, appeasement",
			"combinations":   []string{},
			"description":    "Ears flattened backwards against its head",
			"interpretation": "Discomfort or appeasement.",
			"intensity":      3,
		},
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	catalog, err := core.LoadCatalog(path)
	require.NoError(t, err)
	return catalog
}

func TestInterpret_EmptyInput(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	result, err := it.Interpret(nil, core.Context{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Detection.Total)
	assert.Equal(t, 0.0, result.Narrative.Confidence, "empty input pins confidence to zero")
	assert.Equal(t, NoSignalsNarrative, result.Narrative.Narrative)
	assert.Equal(t, 0, result.Combinations.Total)
}

func TestInterpret_UnknownIDsDroppedSilently(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	result, err := it.Interpret([]string{"unknown_id_xyz"}, core.Context{})
	require.NoError(t, err, "unknown ids are absorbed, not surfaced")

	assert.Equal(t, 0, result.Detection.Total)
	assert.Equal(t, 0.0, result.Summary.Confidence)
	assert.Equal(t, NoSignalsNarrative, result.Summary.Narrative)
}

func TestInterpret_SingleSignalDefaultContext(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	result, err := it.Interpret([]string{"orejas_atras"}, core.Context{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Detection.Total)
	assert.InDelta(t, 0.70, result.Narrative.Confidence, 1e-9, "lone signal without context is the base confidence")
	assert.Equal(t, core.UnknownPlace, result.Context.Context.Place)
	assert.Equal(t, core.UnknownInteraction, result.Context.Context.Interaction)
	assert.Equal(t, core.NoObject, result.Context.Context.Object)
}

func TestInterpret_ScenarioHomeWithHuman(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	result, err := it.Interpret([]string{"play_bow"}, core.Context{Place: "home", Interaction: "with human"})
	require.NoError(t, err)

	assert.InDelta(t, 0.75, result.Narrative.Confidence, 1e-9)
	assert.Contains(t, result.Narrative.Narrative, "Play Bow")
	assert.Contains(t, result.Narrative.Narrative, "home")
	assert.Contains(t, result.Narrative.Narrative, "with human")
	assert.True(t, len(result.Narrative.Narrative) > 0)
	assert.Equal(t, "An unmistakable invitation to play.",
		result.Narrative.Narrative[len(result.Narrative.Narrative)-len("An unmistakable invitation to play."):],
		"narrative ends with the primary signal's canonical interpretation")
}

func TestInterpret_ScenarioCombination(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	result, err := it.Interpret(
		[]string{"play_bow", "cola_mueve_rapido"},
		core.Context{Place: "home", Interaction: "with human", Object: "toy"},
	)
	require.NoError(t, err)

	require.Equal(t, 1, result.Combinations.Total)
	combo := result.Combinations.Combinations[0]
	assert.Equal(t, "play_bow", combo.Primary)
	assert.Equal(t, []string{"cola_mueve_rapido"}, combo.Partners)
	assert.Contains(t, combo.Note, "Play Bow")
	assert.InDelta(t, 0.85, result.Narrative.Confidence, 1e-9)
}

func TestInterpret_ConfidenceMonotonicInCombinations(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))
	ctx := core.Context{Place: "park"}

	without, err := it.Interpret([]string{"play_bow"}, ctx)
	require.NoError(t, err)
	with, err := it.Interpret([]string{"play_bow", "cola_mueve_rapido"}, ctx)
	require.NoError(t, err)

	assert.Greater(t, with.Narrative.Confidence, without.Narrative.Confidence)
	assert.LessOrEqual(t, with.Narrative.Confidence, 0.95)
}

func TestInterpret_PlaceAddsExactlyFiveHundredths(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	unknown, err := it.Interpret([]string{"orejas_atras"}, core.Context{})
	require.NoError(t, err)
	park, err := it.Interpret([]string{"orejas_atras"}, core.Context{Place: "park"})
	require.NoError(t, err)

	assert.InDelta(t, 0.05, park.Narrative.Confidence-unknown.Narrative.Confidence, 1e-9)
}

func TestInterpret_ConfidenceCeiling(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	// Repeated ids are kept as independent detections, so each repeat of
	// play_bow contributes another combination record and another 0.10.
	ids := []string{"play_bow", "play_bow", "play_bow", "play_bow", "cola_mueve_rapido"}
	result, err := it.Interpret(ids, core.Context{Place: "park"})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Combinations.Total)
	assert.InDelta(t, 0.95, result.Narrative.Confidence, 1e-9, "confidence clamps at the ceiling")
}

func TestInterpret_DuplicateIDsPreserved(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	result, err := it.Interpret([]string{"orejas_atras", "orejas_atras"}, core.Context{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Detection.Total)
	assert.Equal(t, "orejas_atras", result.Detection.Signals[0].ID)
	assert.Equal(t, "orejas_atras", result.Detection.Signals[1].ID)
}

func TestInterpret_Deterministic(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))
	ids := []string{"play_bow", "cola_mueve_rapido", "orejas_atras"}
	ctx := core.Context{Place: "park", Interaction: "with another dog"}

	first, err := it.Interpret(ids, ctx)
	require.NoError(t, err)
	second, err := it.Interpret(ids, ctx)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical inputs must yield byte-identical results")
}

func TestInterpret_ConfidenceAlwaysBounded(t *testing.T) {
	it := NewInterpreter(sampleCatalog(t))

	inputs := [][]string{
		nil,
		{"play_bow"},
		{"cola_mueve_rapido", "orejas_atras"},
		{"play_bow", "cola_mueve_rapido", "orejas_atras", "play_bow"},
		{"unknown", "play_bow", "unknown"},
	}
	for _, ids := range inputs {
		result, err := it.Interpret(ids, core.Context{Place: "garden", Interaction: "with human"})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Narrative.Confidence, 0.0)
		assert.LessOrEqual(t, result.Narrative.Confidence, 0.95)
	}
}

func TestInterpret_NilCatalogIsTypedFailure(t *testing.T) {
	it := NewInterpreter(nil)

	result, err := it.Interpret([]string{"play_bow"}, core.Context{})
	assert.Nil(t, result)

	var ierr *core.InterpretationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, core.UncertainNarrative, ierr.Fallback)
}

func TestInterpret_PartnerOrderFollowsCatalog(t *testing.T) {
	catalog, err := core.LoadCatalog("")
	require.NoError(t, err)
	it := NewInterpreter(catalog)

	// mirada_fija declares cuerpo_rigido before grunido_bajo; the input
	// names them in the opposite order.
	result, err := it.Interpret([]string{"mirada_fija", "grunido_bajo", "cuerpo_rigido"}, core.Context{})
	require.NoError(t, err)

	require.NotEmpty(t, result.Combinations.Combinations)
	first := result.Combinations.Combinations[0]
	assert.Equal(t, "mirada_fija", first.Primary)
	assert.Equal(t, []string{"cuerpo_rigido", "grunido_bajo"}, first.Partners)
}

func TestCombinations_AbsenceNotEmptyRecord(t *testing.T) {
	catalog := sampleCatalog(t)
	detection := DetectSignals(catalog, []string{"orejas_atras"})
	combos := AnalyzeCombinations([]string{"orejas_atras"}, detection)

	assert.Empty(t, combos.Combinations, "a signal without qualifying partners contributes no record")
	assert.Equal(t, 0, combos.Total)
}
