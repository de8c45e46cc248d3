package program

import (
	"fmt"
	"strings"
	"time"
)

// Variant distinguishes otherwise-identical programs by audience role.
type Variant string

const (
	VariantKids   Variant = "kids"
	VariantParent Variant = "parent"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantKids:
		return VariantKids, nil
	case VariantParent:
		return VariantParent, nil
	default:
		return "", fmt.Errorf("unknown variant %q", s)
	}
}

// Identity names one program: the world it belongs to (program type), the
// numeric program id (lmid) and the audience variant. Language selects
// localized system assets and has no part in the generation key.
type Identity struct {
	World    string  `json:"world"`
	LMID     string  `json:"lmid"`
	Variant  Variant `json:"variant"`
	Language string  `json:"language"`
}

func (id Identity) Validate() error {
	if strings.TrimSpace(id.World) == "" {
		return fmt.Errorf("identity: missing world")
	}
	if strings.TrimSpace(id.LMID) == "" {
		return fmt.Errorf("identity: missing lmid")
	}
	if _, err := ParseVariant(string(id.Variant)); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	return nil
}

// String renders the generation key, e.g. "spookyland/32/kids".
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", id.World, id.LMID, id.Variant)
}

// Recording describes one user-submitted voice clip addressed by URL.
// QuestionID and Timestamp are optional; when absent they are parsed out of
// the filename.
type Recording struct {
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	QuestionID string `json:"questionId,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"` // unix millis
}

type SegmentKind string

const (
	// SegmentSingle plays one asset verbatim (jingle, prompt, bare recording).
	SegmentSingle SegmentKind = "single"
	// SegmentCombine concatenates answer clips and mixes a looped background
	// under them; the answers govern the combined duration.
	SegmentCombine SegmentKind = "combine_with_background"
	// SegmentSilence stands in for a system asset that could not be fetched.
	SegmentSilence SegmentKind = "silence"
)

// Segment is one unit of the ordered audio plan. Which fields are set depends
// on Kind.
type Segment struct {
	Kind  SegmentKind
	Label string

	// SegmentSingle
	SourceURL string

	// SegmentCombine
	AnswerURLs    []string
	BackgroundURL string

	// SegmentSilence
	DurationSeconds float64
}

// SegmentPlan is the ordered sequence of segments; order is the temporal
// order of the final audio and must be preserved end-to-end.
type SegmentPlan struct {
	Identity Identity
	Segments []Segment
}

// RecordingCount is the number of user recordings consumed by the plan.
func (p SegmentPlan) RecordingCount() int {
	n := 0
	for _, seg := range p.Segments {
		if seg.Kind == SegmentCombine {
			n += len(seg.AnswerURLs)
		}
	}
	return n
}

// LockRecord is the stored representation of an in-progress generation.
type LockRecord struct {
	Key               string    `json:"key"`
	CreatedAt         time.Time `json:"createdAt"`
	Status            string    `json:"status"`
	RecordingSnapshot []string  `json:"recordingSnapshot"`
	RequestID         string    `json:"requestId"`
}

func (r LockRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// VariantFilter returns the identity-scoping predicate for snapshots:
// filenames tagged with the other audience's prefix are excluded, untagged
// filenames count for both variants.
func VariantFilter(v Variant) func(filename string) bool {
	other := VariantParent
	if v == VariantParent {
		other = VariantKids
	}
	prefix := string(other) + "_"
	return func(filename string) bool {
		return !strings.HasPrefix(strings.ToLower(filename), prefix)
	}
}
