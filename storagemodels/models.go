/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"sort"
	"strings"
)

// Record is a row or item as exchanged with a storage collaborator: field
// name to storage-form value.
type Record map[string]any

// Key identifies one record by its primary-key fields.
type Key map[string]any

// Names returns the key field names in sorted order.
func (k Key) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Join renders the key as sorted "name:value" pairs separated by sep.
func (k Key) Join(sep string) string {
	names := k.Names()
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = fmt.Sprintf("%s:%v", name, k[name])
	}
	return strings.Join(pairs, sep)
}

// String renders the key as "a:1;b:2".
func (k Key) String() string {
	return k.Join(";")
}

// Copy returns a shallow copy of the record.
func (r Record) Copy() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// WithoutNulls returns a copy of the record without nil values.
func (r Record) WithoutNulls() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// Pick returns the key formed by the named fields of the record. ok is false
// when one of the fields is missing or nil.
func (r Record) Pick(names []string) (key Key, ok bool) {
	key = make(Key, len(names))
	for _, name := range names {
		v, exists := r[name]
		if !exists || v == nil {
			return key, false
		}
		key[name] = v
	}
	return key, true
}
