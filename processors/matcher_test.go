package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawLingo/core"
)

func TestMatchDescription_AdditiveIntensity(t *testing.T) {
	catalog := sampleCatalog(t)

	// "chest"/"lowered" hit play_bow in posture, "bow" hits it again in
	// movements: two matching fields at intensity 5 score exactly 10.
	description := core.BodyDescription{
		Posture:   "chest lowered near to floor",
		Movements: "a playful bow, then bouncing",
	}
	ranked := MatchDescription(catalog, description)

	require.Len(t, ranked, 1)
	assert.Equal(t, "play_bow", ranked[0].Signal.ID)
	assert.Equal(t, 10, ranked[0].Score)
}

func TestMatchDescription_NoMatchExcluded(t *testing.T) {
	catalog := sampleCatalog(t)

	ranked := MatchDescription(catalog, core.BodyDescription{Sounds: "soft whimpering"})
	assert.Empty(t, ranked, "zero-score signals never appear in the ranking")
}

func TestMatchDescription_SortedDescending(t *testing.T) {
	catalog := sampleCatalog(t)

	description := core.BodyDescription{
		Posture:   "chest lowered near to floor", // play_bow (5)
		Tail:      "swings wildly, fast",         // cola_mueve_rapido (4)
		Movements: "a playful bow, then bouncing", // play_bow again (5)
	}
	ranked := MatchDescription(catalog, description)

	require.Len(t, ranked, 2)
	assert.Equal(t, "play_bow", ranked[0].Signal.ID)
	assert.Equal(t, 10, ranked[0].Score)
	assert.Equal(t, "cola_mueve_rapido", ranked[1].Signal.ID)
	assert.Equal(t, 4, ranked[1].Score)
}

func TestMatchDescription_EmptyFieldsIgnored(t *testing.T) {
	catalog := sampleCatalog(t)

	ranked := MatchDescription(catalog, core.BodyDescription{})
	assert.Empty(t, ranked)
}

func TestMatchDescription_CaseInsensitive(t *testing.T) {
	catalog := sampleCatalog(t)

	ranked := MatchDescription(catalog, core.BodyDescription{Ears: "EARS FLATTENED BACKWARDS"})
	require.Len(t, ranked, 1)
	assert.Equal(t, "orejas_atras", ranked[0].Signal.ID)
	assert.Equal(t, 3, ranked[0].Score)
}

func TestMatchDescription_ShortTokensNeverMatch(t *testing.T) {
	catalog := sampleCatalog(t)

	// "to" appears in the play_bow description text but is below the
	// three-character keyword floor.
	ranked := MatchDescription(catalog, core.BodyDescription{Eyes: "to to to"})
	assert.Empty(t, ranked)
}
