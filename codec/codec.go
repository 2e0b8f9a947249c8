// Package codec centralizes encoding for the legacy single-object snapshot
// format.
//
// Snapshot files record the codec name in their header, so bytes written by
// one codec are always decoded by the same one. Changing the default codec
// is a breaking-change boundary for previously persisted snapshots.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	default:
		return nil, false
	}
}
