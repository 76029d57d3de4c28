package cache

import "strings"

// Key identifies a cache entry. It is an ordered tuple such as
// Key{"news", 0, "PUBLISHED"}; two keys are equal iff every component is
// deeply equal, including its dynamic type.
type Key []any

// NewKey builds a Key from its components.
func NewKey(parts ...any) Key {
	return Key(parts)
}

// Append returns a new key with parts added after k's components.
func (k Key) Append(parts ...any) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

// hasSerializedPrefix reports whether the canonical key s starts with the
// canonical prefix p on a component boundary.
func hasSerializedPrefix(s, p string) bool {
	if p == "" || s == p {
		return true
	}
	return strings.HasPrefix(s, p+KeySeparator)
}
