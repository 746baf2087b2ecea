package core

import (
	"time"
)

// ========== 信号目录结构 ==========

// Signal is one catalog-defined unit of canine body language. Catalog
// entries are immutable after load and shared across all interpretation
// calls.
type Signal struct {
	ID                      string   `json:"id"`
	DisplayName             string   `json:"display_name"`
	Categories              []string `json:"categories"`
	CombinationPartners     []string `json:"combination_partners,omitempty"`
	RawDescription          string   `json:"raw_description"`
	CanonicalInterpretation string   `json:"canonical_interpretation"`
	Intensity               int      `json:"intensity"`
}

// Sentinel context values. An absent field normalizes to these.
const (
	UnknownPlace       = "unknown"
	UnknownInteraction = "unknown"
	NoObject           = "none"
)

// Context carries the situational metadata for one interpretation call.
type Context struct {
	Place       string `json:"place"`
	Interaction string `json:"interaction"`
	Object      string `json:"object"`
}

// Normalized fills absent fields with their sentinel values.
func (c Context) Normalized() Context {
	if c.Place == "" {
		c.Place = UnknownPlace
	}
	if c.Interaction == "" {
		c.Interaction = UnknownInteraction
	}
	if c.Object == "" {
		c.Object = NoObject
	}
	return c
}

// ========== 四层解读输出 ==========

// DetectionResult is layer 1 output: catalog signals resolved from the
// caller's id list, in input order. Repeated ids stay repeated.
type DetectionResult struct {
	Signals []Signal `json:"signals"`
	Total   int      `json:"total"`
}

// Combination records that a detected signal's declared partners were
// also present in the input.
type Combination struct {
	Primary  string   `json:"primary"`
	Partners []string `json:"partners"`
	Note     string   `json:"note"`
}

// CombinationResult is layer 2 output.
type CombinationResult struct {
	Combinations []Combination `json:"combinations"`
	Total        int           `json:"total"`
}

// ContextResult is layer 3 output: the normalized context attached to the
// detected signal set, untouched.
type ContextResult struct {
	Context Context  `json:"context"`
	Signals []Signal `json:"contextualized_signals"`
}

// NarrativeResult is layer 4 output.
type NarrativeResult struct {
	Narrative  string  `json:"narrative"`
	Confidence float64 `json:"confidence"`
}

// Summary condenses an interpretation for callers that only persist the
// headline fields.
type Summary struct {
	SignalCount int     `json:"signal_count"`
	Confidence  float64 `json:"confidence"`
	Narrative   string  `json:"narrative"`
}

// InterpretationResult aggregates all four layer outputs. Immutable once
// produced; the core never persists it.
type InterpretationResult struct {
	Detection    DetectionResult   `json:"detection"`
	Combinations CombinationResult `json:"combinations"`
	Context      ContextResult     `json:"context"`
	Narrative    NarrativeResult   `json:"narrative"`
	Summary      Summary           `json:"summary"`
}

// UncertainNarrative is the safe fallback handed to callers when the
// orchestrator absorbs an unexpected failure.
const UncertainNarrative = "Interpretación incierta - señales ambiguas detectadas"

// InterpretationError is the typed failure value returned instead of a
// raw panic when a layer misbehaves.
type InterpretationError struct {
	Reason   string `json:"reason"`
	Fallback string `json:"fallback"`
}

func (e *InterpretationError) Error() string {
	return "interpretation failed: " + e.Reason
}

// NewInterpretationError wraps a failure reason with the fixed fallback
// narrative.
func NewInterpretationError(reason string) *InterpretationError {
	return &InterpretationError{Reason: reason, Fallback: UncertainNarrative}
}

// ========== 关键词匹配 ==========

// BodyDescription is the structured free-text input of the keyword
// matcher. All fields are optional.
type BodyDescription struct {
	Posture   string `json:"posture"`
	Tail      string `json:"tail"`
	Ears      string `json:"ears"`
	Eyes      string `json:"eyes"`
	Mouth     string `json:"mouth"`
	Movements string `json:"movements"`
	Sounds    string `json:"sounds"`
}

// Fields returns the description fields in their fixed order.
func (d BodyDescription) Fields() []string {
	return []string{d.Posture, d.Tail, d.Ears, d.Eyes, d.Mouth, d.Movements, d.Sounds}
}

// SignalScore is one ranked keyword-match hit.
type SignalScore struct {
	Signal Signal `json:"signal"`
	Score  int    `json:"score"`
}

// ========== 视频元数据 ==========

// VideoRecord is the metadata record of one shared pet video. The
// interpretation engine never writes these itself; the HTTP layer copies
// narrative and confidence into Translation/Confidence after a call.
type VideoRecord struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	PetName      string    `json:"pet_name,omitempty"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	SignalIDs    []string  `json:"signal_ids,omitempty"`
	Place        string    `json:"place,omitempty"`
	Interaction  string    `json:"interaction,omitempty"`
	Object       string    `json:"object,omitempty"`
	Translation  string    `json:"translation,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContextValue assembles the record's situational fields into a
// normalized interpretation Context.
func (v VideoRecord) ContextValue() Context {
	return Context{Place: v.Place, Interaction: v.Interaction, Object: v.Object}.Normalized()
}
