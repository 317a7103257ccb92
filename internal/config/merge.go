package config

import (
	"fmt"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Tree is an untyped configuration layer as parsed from TOML, viper or a caller.
type Tree = map[string]any

// Merge deep-merges layers left to right into a new tree. Tables merge key-wise;
// scalars and arrays replace. Inputs are never modified and nil layers are skipped.
func Merge(layers ...Tree) Tree {
	out := Tree{}
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src Tree) {
	for k, v := range src {
		if sub, ok := asTree(v); ok {
			if existing, ok := asTree(dst[k]); ok {
				merged := Clone(existing)
				mergeInto(merged, sub)
				dst[k] = merged
				continue
			}
			dst[k] = Clone(sub)
			continue
		}
		dst[k] = cloneValue(v)
	}
}

// Clone returns a deep copy of tree.
func Clone(tree Tree) Tree {
	if tree == nil {
		return nil
	}
	out := make(Tree, len(tree))
	for k, v := range tree {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if sub, ok := asTree(v); ok {
		return Clone(sub)
	}
	switch s := v.(type) {
	case []any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = cloneValue(s[i])
		}
		return out
	case []string:
		return append([]string(nil), s...)
	}
	return v
}

// asTree accepts both map[string]any and the map[any]any shape some decoders emit.
func asTree(v any) (Tree, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(Tree, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// Set assigns value at a dotted key path, creating intermediate tables.
func Set(tree Tree, key string, value any) {
	parts := strings.Split(key, ".")
	cur := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := asTree(cur[part])
		if !ok {
			next = Tree{}
		}
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// ParseOverrides turns key=value pairs into a tree. Values are read as TOML
// literals when possible ("3", "true", "[\"zsh\", \"-c\"]", "\"500ms\"") and as
// plain strings otherwise.
func ParseOverrides(pairs []string) (Tree, error) {
	out := Tree{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("parse override %q: want key=value", pair)
		}
		for _, part := range strings.Split(key, ".") {
			if part == "" {
				return nil, fmt.Errorf("parse override %q: empty key segment", pair)
			}
		}
		Set(out, key, parseLiteral(strings.TrimSpace(raw)))
	}
	return out, nil
}

func parseLiteral(raw string) any {
	var doc struct {
		V any `toml:"v"`
	}
	if err := toml.Unmarshal([]byte("v = "+raw), &doc); err == nil && doc.V != nil {
		return doc.V
	}
	return raw
}

func sortedKeys(tree Tree) []string {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// flatten lists every leaf of tree as a dotted key. Empty tables have no leaves.
func flatten(prefix string, tree Tree, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := asTree(v); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}
