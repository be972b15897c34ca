// Package codec centralizes the encoding used for the structured sections of
// persisted model archives (labels, hyperparameters).
//
// Codec selection is a breaking-change boundary: archives record the codec
// name in their header, and a reader selects the codec by that name. Changing
// the default codec does not invalidate existing archives.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = JSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
