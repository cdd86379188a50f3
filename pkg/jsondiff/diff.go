// Package jsondiff computes a minimal ordered RFC 6902 patch between two
// JSON values decoded with encoding/json.
package jsondiff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Op is an RFC 6902 operation name. The generator only ever emits add,
// remove and replace; move, copy and test are out of its vocabulary.
type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
)

// Operation is a single structural edit addressed by a JSON Pointer path.
type Operation struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// MarshalJSON renders the operation as a standard JSON Patch member. The
// value member is always present for add and replace, even when it is null
// or another zero value, and never present for remove.
func (o Operation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"op":`)
	opName, err := json.Marshal(string(o.Op))
	if err != nil {
		return nil, err
	}
	buf.Write(opName)
	buf.WriteString(`,"path":`)
	path, err := json.Marshal(o.Path)
	if err != nil {
		return nil, err
	}
	buf.Write(path)
	if o.Op != OpRemove {
		buf.WriteString(`,"value":`)
		value, err := json.Marshal(o.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value at %q: %w", o.Path, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Diff computes the ordered operation list that transforms before into
// after. Both values are expected in encoding/json shape: nil, bool,
// float64, string, []any and map[string]any.
//
// Objects are compared key-wise and recurse so a replace lands at the
// deepest differing path. Arrays are compared by index: trailing removals
// are emitted highest index first so they do not shift indices still
// pending, and additions append upward from the first new index. When the
// two values disagree on kind the whole subtree is replaced in one
// operation; a before/after pair with different root kinds yields a single
// replace at "".
func Diff(before, after any) []Operation {
	return diffValue(before, after, "")
}

func diffValue(before, after any, path string) []Operation {
	if reflect.DeepEqual(before, after) {
		return nil
	}

	beforeObj, beforeIsObj := before.(map[string]any)
	afterObj, afterIsObj := after.(map[string]any)
	if beforeIsObj && afterIsObj {
		return diffObject(beforeObj, afterObj, path)
	}

	beforeArr, beforeIsArr := before.([]any)
	afterArr, afterIsArr := after.([]any)
	if beforeIsArr && afterIsArr {
		return diffArray(beforeArr, afterArr, path)
	}

	// Scalars, or a kind mismatch: one replace covers the subtree.
	return []Operation{{Op: OpReplace, Path: path, Value: after}}
}

func diffObject(before, after map[string]any, path string) []Operation {
	var ops []Operation
	for _, key := range sortedKeys(before) {
		if _, ok := after[key]; !ok {
			ops = append(ops, Operation{Op: OpRemove, Path: path + "/" + escapeKey(key)})
		}
	}
	for _, key := range sortedKeys(after) {
		childPath := path + "/" + escapeKey(key)
		beforeValue, ok := before[key]
		if !ok {
			ops = append(ops, Operation{Op: OpAdd, Path: childPath, Value: after[key]})
			continue
		}
		ops = append(ops, diffValue(beforeValue, after[key], childPath)...)
	}
	return ops
}

func diffArray(before, after []any, path string) []Operation {
	var ops []Operation
	shared := len(before)
	if len(after) < shared {
		shared = len(after)
	}
	for i := 0; i < shared; i++ {
		ops = append(ops, diffValue(before[i], after[i], path+"/"+strconv.Itoa(i))...)
	}
	// Highest index first, so earlier removals do not shift later ones.
	for i := len(before) - 1; i >= len(after); i-- {
		ops = append(ops, Operation{Op: OpRemove, Path: path + "/" + strconv.Itoa(i)})
	}
	for i := len(before); i < len(after); i++ {
		ops = append(ops, Operation{Op: OpAdd, Path: path + "/" + strconv.Itoa(i), Value: after[i]})
	}
	return ops
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var keyEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// escapeKey applies RFC 6901 escaping: ~ before /, so a literal "~1" in a
// key survives the round trip.
func escapeKey(key string) string {
	return keyEscaper.Replace(key)
}
