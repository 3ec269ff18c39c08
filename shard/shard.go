// Package shard computes the deterministic, type-agnostic storage paths
// used by every adapter (spec §4.1/§4.2): a 256-way shard keyed by the
// first two hex characters of an entity id, so a path is derivable from the
// id alone with no type->path lookup.
package shard

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind distinguishes a noun (entity) from a verb (relationship) record,
// since the two live under separate top-level prefixes.
type Kind string

const (
	KindNoun Kind = "nouns"
	KindVerb Kind = "verbs"
)

// Key returns the two-character shard prefix for id (lowercase hex, no
// hyphen), one of 256 possible values.
func Key(id uuid.UUID) string {
	return strings.ToLower(id.String())[0:2]
}

// EntityDir returns the directory housing an entity's metadata and vector
// blobs: entities/<kind>/<shard>/<id>/.
func EntityDir(kind Kind, id uuid.UUID) string {
	return fmt.Sprintf("entities/%s/%s/%s", kind, Key(id), id)
}

// MetadataPath returns entities/<kind>/<shard>/<id>/metadata.json.
func MetadataPath(kind Kind, id uuid.UUID) string {
	return EntityDir(kind, id) + "/metadata.json"
}

// VectorPath returns entities/nouns/<shard>/<id>/vector.bin. Relationships
// carry no vector, so this is only meaningful for KindNoun.
func VectorPath(id uuid.UUID) string {
	return EntityDir(KindNoun, id) + "/vector.bin"
}

// IndexPath returns _system/indexes/<name>/<rest...> for a persisted index
// snapshot (HNSW graph, metadata bitsets, graph adjacency).
func IndexPath(name string, rest ...string) string {
	parts := append([]string{"_system", "indexes", name}, rest...)
	return strings.Join(parts, "/")
}

// BranchRefPath returns _system/branches/<name>.json.
func BranchRefPath(name string) string {
	return fmt.Sprintf("_system/branches/%s.json", name)
}

// CommitPath returns _system/commits/<id>.json.
func CommitPath(id uuid.UUID) string {
	return fmt.Sprintf("_system/commits/%s.json", id)
}
