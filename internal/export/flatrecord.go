package export

import (
	"bytes"
	"encoding/json"

	"github.com/elliotchance/orderedmap/v2"
)

// FlatRecord is the flattened key-value projection of one entity record.
// Keys keep their insertion order, which follows the schema's declaration
// order, so serialized output is deterministic run-over-run.
//
// Values are scalars (string, int64, float64, bool, nil) or []string for
// reduced to-many associations.
type FlatRecord struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewFlatRecord creates an empty record.
func NewFlatRecord() *FlatRecord {
	return &FlatRecord{m: orderedmap.NewOrderedMap[string, any]()}
}

// Set stores a value under key. Setting an existing key overwrites the value
// and keeps the key's original position.
func (r *FlatRecord) Set(key string, value any) {
	r.m.Set(key, value)
}

// Get returns the value stored under key.
func (r *FlatRecord) Get(key string) (any, bool) {
	return r.m.Get(key)
}

// Has reports whether key is present.
func (r *FlatRecord) Has(key string) bool {
	_, ok := r.m.Get(key)
	return ok
}

// Keys returns all keys in insertion order.
func (r *FlatRecord) Keys() []string {
	keys := make([]string, 0, r.m.Len())
	for el := r.m.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	return keys
}

// Len returns the number of keys.
func (r *FlatRecord) Len() int {
	return r.m.Len()
}

// MarshalJSON renders the record as a JSON object preserving key order.
func (r *FlatRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for el := r.m.Front(); el != nil; el = el.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(el.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(el.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Batch is an ordered sequence of flattened records, one per input record,
// in the store's delivery order.
type Batch []*FlatRecord
