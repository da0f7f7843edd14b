package ledger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Fname is the opaque learner filename key: either a single path or an
// ordered group of paths for composite learners. The wire codec and the
// ledger log both round-trip the distinction losslessly.
type Fname struct {
	paths   []string
	isGroup bool
}

// Single builds an Fname keyed by one path.
func Single(path string) Fname {
	return Fname{paths: []string{path}}
}

// Group builds an Fname keyed by an ordered list of paths.
func Group(paths []string) Fname {
	cp := make([]string, len(paths))
	copy(cp, paths)
	return Fname{paths: cp, isGroup: true}
}

// IsGroup reports whether fn was built with Group.
func (fn Fname) IsGroup() bool {
	return fn.isGroup
}

// Paths returns the underlying path list. For a Single fname this has
// exactly one element.
func (fn Fname) Paths() []string {
	cp := make([]string, len(fn.paths))
	copy(cp, fn.paths)
	return cp
}

// String returns the single path, or the group joined with "+" for
// human-readable logging. Use Key for a collision-safe map key.
func (fn Fname) String() string {
	if !fn.isGroup {
		if len(fn.paths) == 0 {
			return ""
		}
		return fn.paths[0]
	}
	return strings.Join(fn.paths, "+")
}

// fnameKeySep cannot appear in a legal filename component, so it is safe
// as a join separator for the canonical map key.
const fnameKeySep = "\x1f"

// Key returns the canonical, collision-safe string used to index a row
// in the ledger's insertion-ordered map.
func (fn Fname) Key() string {
	if !fn.isGroup {
		if len(fn.paths) == 0 {
			return ""
		}
		return "s" + fnameKeySep + fn.paths[0]
	}
	return "g" + fnameKeySep + strings.Join(fn.paths, fnameKeySep)
}

// Equal reports whether two Fname values have the same shape and paths.
func (fn Fname) Equal(other Fname) bool {
	return fn.Key() == other.Key()
}

// MarshalJSON encodes a Single fname as a JSON string and a Group fname
// as a JSON array of strings, matching the "string or list of strings"
// shape callers may have used at init.
func (fn Fname) MarshalJSON() ([]byte, error) {
	if fn.isGroup {
		return json.Marshal(fn.paths)
	}
	if len(fn.paths) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(fn.paths[0])
}

// UnmarshalJSON accepts either a JSON string or a JSON array of strings.
func (fn *Fname) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		fn.paths = []string{s}
		fn.isGroup = false
		return nil
	}
	var group []string
	if err := json.Unmarshal(data, &group); err != nil {
		return err
	}
	fn.paths = group
	fn.isGroup = true
	return nil
}

// EncodeMsgpack writes fn as a bare string (Single) or an array of
// strings (Group), so the wire codec carries the same shape as the
// JSON log — no source-ecosystem-specific type tag is embedded. A zero
// Fname (built with neither Single nor Group) is written as nil.
func (fn Fname) EncodeMsgpack(enc *msgpack.Encoder) error {
	if fn.isGroup {
		return enc.Encode(fn.paths)
	}
	if len(fn.paths) == 0 {
		return enc.EncodeNil()
	}
	return enc.Encode(fn.paths[0])
}

// DecodeMsgpack accepts either a bare string or an array of strings; nil
// decodes to the zero Fname.
func (fn *Fname) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		fn.paths = nil
		fn.isGroup = false
	case string:
		fn.paths = []string{val}
		fn.isGroup = false
	case []interface{}:
		group := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("ledger: fname group element %d is not a string", i)
			}
			group[i] = s
		}
		fn.paths = group
		fn.isGroup = true
	default:
		return fmt.Errorf("ledger: unexpected fname encoding %T", v)
	}
	return nil
}
