package program

import "fmt"

// Locks, manifests and tracks are siblings under the same {world}/{lmid}
// prefix so one derivation covers all three.

func identityPrefix(id Identity) string {
	return fmt.Sprintf("%s/%s", id.World, id.LMID)
}

func LockKey(id Identity) string {
	return fmt.Sprintf("%s/generation-lock-%s.json", identityPrefix(id), id.Variant)
}

// ManifestKey is shared by both variants of a program; the stored object
// carries one section per variant (see MergeManifest).
func ManifestKey(id Identity) string {
	return fmt.Sprintf("%s/last-program-manifest.json", identityPrefix(id))
}

func TrackKey(id Identity) string {
	return fmt.Sprintf("%s/radio-program-%s.mp3", identityPrefix(id), id.Variant)
}
