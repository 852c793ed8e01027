package hashdict

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-cmb/internal/digest"
)

// Dict is a nested parameter record. Values are scalars, strings, nil,
// slices, or nested Dicts.
type Dict map[string]any

// ErrMismatch is wrapped by every *MismatchError.
var ErrMismatch = errors.New("hashdict: configuration mismatch")

// ignoredKeys never take part in comparison; they name locations, not
// content.
var ignoredKeys = map[string]bool{"lib_dir": true, "prefix": true}

// MismatchError identifies the first key whose value differs.
type MismatchError struct {
	Key    string
	Reason string
	Stored any
	Fresh  any
	// Diff is a full go-cmp report of stored vs fresh records.
	Diff string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("hashdict: mismatch at key %s: %s (stored %v, current %v)", e.Key, e.Reason, e.Stored, e.Fresh)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// Canonical round-trips d through YAML so that values compare with the same
// types they have after being read back from disk.
func Canonical(d Dict) (map[string]any, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("hashdict: encode: %w", err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("hashdict: decode: %w", err)
	}
	return out, nil
}

// Digest returns a stable content hash of d, suitable as a cache key.
func Digest(d Dict) (string, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("hashdict: encode: %w", err)
	}
	return digest.New().Bytes(data).Sum(), nil
}

// Compare checks a stored record against a freshly computed one.
func Compare(stored map[string]any, fresh Dict) error {
	canon, err := Canonical(fresh)
	if err != nil {
		return err
	}
	if mm := compareMaps(stored, canon, nil); mm != nil {
		mm.Diff = cmp.Diff(stored, canon)
		return mm
	}
	return nil
}

func compareMaps(a, b map[string]any, chain []string) *MismatchError {
	keys := make(map[string]bool, len(a)+len(b))
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		if !ignoredKeys[k] {
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		path := append(append([]string(nil), chain...), k)
		va, okA := a[k]
		vb, okB := b[k]
		if !okA || !okB {
			return &MismatchError{Key: strings.Join(path, ":"), Reason: "missing key", Stored: va, Fresh: vb}
		}
		if mm := compareValues(va, vb, path); mm != nil {
			return mm
		}
	}
	return nil
}

func compareValues(a, b any, path []string) *MismatchError {
	fail := func(reason string) *MismatchError {
		return &MismatchError{Key: strings.Join(path, ":"), Reason: reason, Stored: a, Fresh: b}
	}

	if fa, ok := number(a); ok {
		fb, ok := number(b)
		if !ok {
			return fail("unequal types")
		}
		if fa != fb {
			return fail("unequal values")
		}
		return nil
	}

	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok {
			return fail("unequal types")
		}
		return compareMaps(va, vb, path)
	case []any:
		vb, ok := b.([]any)
		if !ok {
			return fail("unequal types")
		}
		if len(va) != len(vb) {
			return fail("unequal lengths")
		}
		for i := range va {
			if mm := compareValues(va[i], vb[i], append(path, fmt.Sprint(i))); mm != nil {
				return mm
			}
		}
		return nil
	}

	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return fail("unequal types")
	}
	if a != b {
		return fail("unequal values")
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
