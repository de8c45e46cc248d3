package program

import "time"

// ManifestVersion identifies the stored manifest schema.
const ManifestVersion = 2

// ManifestEntry records one successful generation for one variant.
type ManifestEntry struct {
	GeneratedAt    time.Time `json:"generatedAt"`
	OutputURL      string    `json:"outputUrl"`
	RecordingCount int       `json:"recordingCount"`
	RequestID      string    `json:"requestId,omitempty"`
}

// StoredManifest is the combined manifest object for one {world}/{lmid}.
// Field ownership: World, LMID and Version are shared and overwritten by
// every successful generation; Kids and Parent are each owned exclusively by
// the variant of that name and never touched by the other variant's writer.
type StoredManifest struct {
	World   string         `json:"world"`
	LMID    string         `json:"lmid"`
	Version int            `json:"version"`
	Kids    *ManifestEntry `json:"kids,omitempty"`
	Parent  *ManifestEntry `json:"parent,omitempty"`
}

// MergeManifest folds one generation's entry into the existing stored
// manifest, preserving the other variant's section. existing may be nil.
func MergeManifest(existing *StoredManifest, id Identity, entry ManifestEntry) StoredManifest {
	out := StoredManifest{
		World:   id.World,
		LMID:    id.LMID,
		Version: ManifestVersion,
	}
	if existing != nil {
		out.Kids = existing.Kids
		out.Parent = existing.Parent
	}
	e := entry
	switch id.Variant {
	case VariantParent:
		out.Parent = &e
	default:
		out.Kids = &e
	}
	return out
}

// EntryFor returns the section owned by the identity's variant, or nil.
func (m *StoredManifest) EntryFor(v Variant) *ManifestEntry {
	if m == nil {
		return nil
	}
	if v == VariantParent {
		return m.Parent
	}
	return m.Kids
}
