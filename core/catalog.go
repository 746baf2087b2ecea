package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Catalog validation errors (fatal at startup).
var (
	ErrDuplicateSignal = errors.New("duplicate signal id")
	ErrMissingField    = errors.New("missing required signal field")
	ErrBadIntensity    = errors.New("intensity must be between 1 and 5")
)

// rawSignal is the on-disk catalog shape. The source data encodes
// categories as one comma-joined string; it is split into tags exactly
// once, at load time.
type rawSignal struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Combinations   []string `json:"combinations"`
	Description    string   `json:"description"`
	Interpretation string   `json:"interpretation"`
	Intensity      int      `json:"intensity"`
}

// Catalog is the read-only signal reference data. It is built once at
// process start and shared by reference across concurrent calls; no
// locking is needed after construction.
type Catalog struct {
	signals []Signal
	byID    map[string]Signal
}

// Lookup resolves a signal id. The second return reports presence.
func (c *Catalog) Lookup(id string) (Signal, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// All returns the signals in declaration order.
func (c *Catalog) All() []Signal {
	return c.signals
}

// Len reports the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.signals)
}

func buildCatalog(raws []rawSignal) (*Catalog, error) {
	c := &Catalog{
		signals: make([]Signal, 0, len(raws)),
		byID:    make(map[string]Signal, len(raws)),
	}
	for i, r := range raws {
		if r.ID == "" || r.Name == "" || r.Description == "" || r.Interpretation == "" {
			return nil, fmt.Errorf("catalog entry %d: %w", i, ErrMissingField)
		}
		if r.Intensity < 1 || r.Intensity > 5 {
			return nil, fmt.Errorf("catalog entry %q: %w (got %d)", r.ID, ErrBadIntensity, r.Intensity)
		}
		if _, exists := c.byID[r.ID]; exists {
			return nil, fmt.Errorf("catalog entry %q: %w", r.ID, ErrDuplicateSignal)
		}
		s := Signal{
			ID:                      r.ID,
			DisplayName:             r.Name,
			Categories:              splitCategories(r.Category),
			CombinationPartners:     r.Combinations,
			RawDescription:          r.Description,
			CanonicalInterpretation: r.Interpretation,
			Intensity:               r.Intensity,
		}
		c.signals = append(c.signals, s)
		c.byID[s.ID] = s
	}
	return c, nil
}

func splitCategories(joined string) []string {
	parts := strings.Split(joined, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// LoadCatalog builds the catalog from a JSON file, or from the built-in
// default data when path is empty. Malformed data is a startup error,
// never a per-call one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return buildCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var raws []rawSignal
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return buildCatalog(raws)
}

// defaultCatalog mirrors the reference data shipped with the detection
// collaborator. Ids follow the upstream detector's naming.
var defaultCatalog = []rawSignal{
	{
		ID:             "play_bow",
		Name:           "Play Bow",
		Category:       "play, joy",
		Combinations:   []string{"cola_mueve_rapido", "ladrido_agudo"},
		Description:    "Front legs stretched forward, chest lowered, rear end held high",
		Interpretation: "An unmistakable invitation to play. Your dog is relaxed and wants you to join in.",
		Intensity:      5,
	},
	{
		ID:             "cola_mueve_rapido",
		Name:           "Rapid Tail Wag",
		Category:       "joy, excitement",
		Combinations:   []string{"play_bow", "salto_alegre"},
		Description:    "Tail swings wide and fast, often with the whole rear end wiggling",
		Interpretation: "High positive excitement, usually directed at someone familiar.",
		Intensity:      4,
	},
	{
		ID:             "salto_alegre",
		Name:           "Joyful Jumping",
		Category:       "joy, greeting",
		Combinations:   []string{"cola_mueve_rapido"},
		Description:    "Repeated bouncing jumps toward a person, front paws leaving the floor",
		Interpretation: "An enthusiastic greeting that seeks attention and closeness.",
		Intensity:      3,
	},
	{
		ID:             "ladrido_agudo",
		Name:           "High-Pitched Bark",
		Category:       "play, excitement",
		Combinations:   []string{"play_bow"},
		Description:    "Short sharp barks in a high tone, repeated in quick bursts",
		Interpretation: "Excited vocalization that accompanies play or anticipation.",
		Intensity:      2,
	},
	{
		ID:             "orejas_atras",
		Name:           "Ears Pinned Back",
		Category:       "fear, appeasement",
		Combinations:   []string{"cola_baja", "cuerpo_agachado"},
		Description:    "Ears flattened against the head, pointing backwards",
		Interpretation: "Discomfort or appeasement. Your dog is unsure about the situation.",
		Intensity:      3,
	},
	{
		ID:             "cola_baja",
		Name:           "Low Tail",
		Category:       "fear, caution",
		Combinations:   []string{"orejas_atras", "cuerpo_agachado"},
		Description:    "Tail held low or tucked between the hind legs",
		Interpretation: "Caution or anxiety. Your dog is trying to look smaller.",
		Intensity:      3,
	},
	{
		ID:             "cuerpo_agachado",
		Name:           "Crouched Body",
		Category:       "fear, submission",
		Combinations:   []string{"orejas_atras", "cola_baja"},
		Description:    "Body lowered close to the floor, weight shifted backwards",
		Interpretation: "A submissive, fearful posture that tries to avoid confrontation.",
		Intensity:      4,
	},
	{
		ID:             "mirada_fija",
		Name:           "Hard Stare",
		Category:       "alert, warning",
		Combinations:   []string{"cuerpo_rigido", "grunido_bajo"},
		Description:    "Eyes locked on a target without blinking, head completely still",
		Interpretation: "Intense focus that can precede a warning. Give your dog space.",
		Intensity:      5,
	},
	{
		ID:             "cuerpo_rigido",
		Name:           "Stiff Body",
		Category:       "alert, warning",
		Combinations:   []string{"mirada_fija", "grunido_bajo"},
		Description:    "Muscles tense, movements frozen, weight square over all four legs",
		Interpretation: "High tension. Your dog is deciding how to respond to a perceived threat.",
		Intensity:      5,
	},
	{
		ID:             "grunido_bajo",
		Name:           "Low Growl",
		Category:       "warning",
		Combinations:   []string{"mirada_fija", "cuerpo_rigido"},
		Description:    "Sustained low rumbling sound coming from the chest",
		Interpretation: "A clear request for distance. It is communication, not misbehavior.",
		Intensity:      4,
	},
	{
		ID:             "bostezo",
		Name:           "Yawn",
		Category:       "stress, calming",
		Combinations:   []string{"lamido_hocico"},
		Description:    "Wide yawns outside of rest, often repeated several times",
		Interpretation: "A calming cue used to defuse tension, not necessarily tiredness.",
		Intensity:      2,
	},
	{
		ID:             "lamido_hocico",
		Name:           "Nose Lick",
		Category:       "stress, calming",
		Combinations:   []string{"bostezo"},
		Description:    "Quick licks of the nose or lips with no food around",
		Interpretation: "Mild stress or appeasement. Your dog is trying to calm things down.",
		Intensity:      2,
	},
}
