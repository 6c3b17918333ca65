// Package options models the validated option set handed to the request
// builder. An option is either explicitly set by the caller or absent;
// absent options never reach the outbound request, so provider-side
// defaults apply. "Unset" and "set to the zero value" are distinguishable
// by construction, not by reflection.
package options

import (
	"fmt"
	"sort"
)

// Kind is the value type of an option.
type Kind int

const (
	// KindString holds a single string value.
	KindString Kind = iota

	// KindStringList holds an ordered list of strings.
	KindStringList

	// KindBool holds a boolean value.
	KindBool

	// KindInt holds an integer value.
	KindInt

	// KindEnum holds one of a fixed set of string values.
	KindEnum
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStringList:
		return "list"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// value is a tagged union holding one option value. Only the field matching
// the kind is meaningful.
type value struct {
	kind Kind
	str  string
	list []string
	b    bool
	i    int
}

// ResourceOptions is a flat mapping of option key to explicitly-set typed
// value, built incrementally from CLI flags or a parsed manifest. The zero
// value is usable.
type ResourceOptions struct {
	values map[Key]value
}

// New returns an empty option set.
func New() ResourceOptions {
	return ResourceOptions{values: make(map[Key]value)}
}

func (o *ResourceOptions) put(k Key, v value) {
	if o.values == nil {
		o.values = make(map[Key]value)
	}
	o.values[k] = v
}

// SetString marks k as explicitly set to v.
func (o *ResourceOptions) SetString(k Key, v string) {
	o.put(k, value{kind: KindString, str: v})
}

// SetStringList marks k as explicitly set to the given list. The list is
// copied.
func (o *ResourceOptions) SetStringList(k Key, v []string) {
	cp := make([]string, len(v))
	copy(cp, v)
	o.put(k, value{kind: KindStringList, list: cp})
}

// SetBool marks k as explicitly set to v.
func (o *ResourceOptions) SetBool(k Key, v bool) {
	o.put(k, value{kind: KindBool, b: v})
}

// SetInt marks k as explicitly set to v.
func (o *ResourceOptions) SetInt(k Key, v int) {
	o.put(k, value{kind: KindInt, i: v})
}

// SetEnum marks k as explicitly set to the enum value v. The caller is
// responsible for v being one of the key's legal values; the request
// builder validates it.
func (o *ResourceOptions) SetEnum(k Key, v string) {
	o.put(k, value{kind: KindEnum, str: v})
}

// IsSet reports whether k was explicitly set.
func (o ResourceOptions) IsSet(k Key) bool {
	_, ok := o.values[k]
	return ok
}

// String returns the string value of k and whether it was set.
func (o ResourceOptions) String(k Key) (string, bool) {
	v, ok := o.values[k]
	if !ok || (v.kind != KindString && v.kind != KindEnum) {
		return "", false
	}
	return v.str, true
}

// StringList returns a copy of the list value of k and whether it was set.
func (o ResourceOptions) StringList(k Key) ([]string, bool) {
	v, ok := o.values[k]
	if !ok || v.kind != KindStringList {
		return nil, false
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// Bool returns the bool value of k and whether it was set.
func (o ResourceOptions) Bool(k Key) (bool, bool) {
	v, ok := o.values[k]
	if !ok || v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Int returns the int value of k and whether it was set.
func (o ResourceOptions) Int(k Key) (int, bool) {
	v, ok := o.values[k]
	if !ok || v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Keys returns the explicitly-set keys in sorted order.
func (o ResourceOptions) Keys() []Key {
	keys := make([]Key, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of explicitly-set options.
func (o ResourceOptions) Len() int {
	return len(o.values)
}

// Clone returns a deep copy. Builders receive option sets by value but the
// backing map is shared; Clone gives callers an independent set.
func (o ResourceOptions) Clone() ResourceOptions {
	cp := New()
	for k, v := range o.values {
		if v.kind == KindStringList {
			list := make([]string, len(v.list))
			copy(list, v.list)
			v.list = list
		}
		cp.values[k] = v
	}
	return cp
}

// Validate checks every set option against the option table: the key must
// be known and the stored kind must match the declared kind. Channel gating
// is the request builder's concern, not Validate's.
func (o ResourceOptions) Validate() error {
	for k, v := range o.values {
		rule, ok := Rules[k]
		if !ok {
			return fmt.Errorf("unknown option %q", k)
		}
		if rule.Kind != v.kind && !(rule.Kind == KindEnum && v.kind == KindString) {
			return fmt.Errorf("option %q: expected %s value, got %s", k, rule.Kind, v.kind)
		}
		if rule.Kind == KindEnum {
			legal := false
			for _, e := range rule.EnumValues {
				if e == v.str {
					legal = true
					break
				}
			}
			if !legal {
				return fmt.Errorf("option %q: %q is not one of %v", k, v.str, rule.EnumValues)
			}
		}
	}
	return nil
}
