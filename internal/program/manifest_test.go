package program

import (
	"testing"
	"time"
)

func TestMergeManifestFirstWrite(t *testing.T) {
	id := Identity{World: "spookyland", LMID: "32", Variant: VariantKids, Language: "en"}
	entry := ManifestEntry{
		GeneratedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		OutputURL:      "https://cdn.example.com/spookyland/32/radio-program-kids.mp3?v=1",
		RecordingCount: 4,
	}

	merged := MergeManifest(nil, id, entry)

	if merged.World != "spookyland" || merged.LMID != "32" {
		t.Fatalf("shared fields=%q/%q, want spookyland/32", merged.World, merged.LMID)
	}
	if merged.Version != ManifestVersion {
		t.Fatalf("Version=%d, want %d", merged.Version, ManifestVersion)
	}
	if merged.Kids == nil || merged.Kids.RecordingCount != 4 {
		t.Fatalf("Kids section=%v, want the written entry", merged.Kids)
	}
	if merged.Parent != nil {
		t.Fatalf("Parent section=%v, want nil on first kids write", merged.Parent)
	}
}

func TestMergeManifestPreservesOtherVariant(t *testing.T) {
	kidsEntry := &ManifestEntry{OutputURL: "kids-url", RecordingCount: 3}
	existing := &StoredManifest{World: "spookyland", LMID: "32", Version: 1, Kids: kidsEntry}

	id := Identity{World: "spookyland", LMID: "32", Variant: VariantParent}
	merged := MergeManifest(existing, id, ManifestEntry{OutputURL: "parent-url", RecordingCount: 2})

	if merged.Kids == nil || merged.Kids.OutputURL != "kids-url" {
		t.Fatalf("Kids=%v, parent write must not touch the kids section", merged.Kids)
	}
	if merged.Parent == nil || merged.Parent.OutputURL != "parent-url" {
		t.Fatalf("Parent=%v, want the new parent entry", merged.Parent)
	}
	if merged.Version != ManifestVersion {
		t.Fatalf("Version=%d, want bumped to %d", merged.Version, ManifestVersion)
	}
}

func TestMergeManifestOverwritesOwnVariant(t *testing.T) {
	existing := &StoredManifest{
		World: "spookyland", LMID: "32", Version: ManifestVersion,
		Kids: &ManifestEntry{OutputURL: "old", RecordingCount: 1},
	}
	id := Identity{World: "spookyland", LMID: "32", Variant: VariantKids}
	merged := MergeManifest(existing, id, ManifestEntry{OutputURL: "new", RecordingCount: 5})
	if merged.Kids.OutputURL != "new" || merged.Kids.RecordingCount != 5 {
		t.Fatalf("Kids=%v, want full overwrite of own section", merged.Kids)
	}
}

func TestKeysShareIdentityPrefix(t *testing.T) {
	id := Identity{World: "spookyland", LMID: "32", Variant: VariantKids}

	if got, want := LockKey(id), "spookyland/32/generation-lock-kids.json"; got != want {
		t.Fatalf("LockKey=%q, want %q", got, want)
	}
	if got, want := ManifestKey(id), "spookyland/32/last-program-manifest.json"; got != want {
		t.Fatalf("ManifestKey=%q, want %q", got, want)
	}
	if got, want := TrackKey(id), "spookyland/32/radio-program-kids.mp3"; got != want {
		t.Fatalf("TrackKey=%q, want %q", got, want)
	}
}

func TestVariantFilter(t *testing.T) {
	keepKids := VariantFilter(VariantKids)
	cases := []struct {
		filename string
		want     bool
	}{
		{"kids_q1_1712345678901.webm", true},
		{"parent_q1_1712345678901.webm", false},
		{"q1_1712345678901.webm", true},
	}
	for _, tc := range cases {
		if got := keepKids(tc.filename); got != tc.want {
			t.Fatalf("keepKids(%q)=%v, want %v", tc.filename, got, tc.want)
		}
	}
	keepParent := VariantFilter(VariantParent)
	if keepParent("kids_q1.webm") {
		t.Fatal("parent filter kept a kids file")
	}
	if !keepParent("parent_q1.webm") {
		t.Fatal("parent filter dropped a parent file")
	}
}
