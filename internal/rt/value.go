// Package rt implements the lazy-value runtime core: a refcounted handle
// heap of tagged blocks and the force driver that reduces thunks to
// weak-head-normal form.
package rt

import "fmt"

// ValueKind identifies the runtime type of a Value.
type ValueKind uint8

const (
	// VKInvalid represents an invalid value.
	VKInvalid ValueKind = iota
	// VKInt represents an unboxed signed integer.
	VKInt
	// VKBool represents an unboxed boolean.
	VKBool
	// VKUnit represents the unit value.
	VKUnit
	// VKBlock represents a handle to a heap block.
	VKBlock
)

// String returns a human-readable name for the value kind.
func (k ValueKind) String() string {
	switch k {
	case VKInvalid:
		return "invalid"
	case VKInt:
		return "int"
	case VKBool:
		return "bool"
	case VKUnit:
		return "unit"
	case VKBlock:
		return "block"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value is a word-sized handle: either an unboxed scalar or a reference
// to a heap block. Only block values can be lazy.
type Value struct {
	Kind ValueKind
	Int  int64
	Bool bool
	H    Handle
}

// IsZero returns true if this is a zero/invalid value.
func (v Value) IsZero() bool {
	return v.Kind == VKInvalid
}

// IsBlock reports whether the value references a heap block.
func (v Value) IsBlock() bool {
	return v.Kind == VKBlock
}

// String returns a human-readable representation of the value.
func (v Value) String() string {
	switch v.Kind {
	case VKInvalid:
		return "<invalid>"
	case VKInt:
		return fmt.Sprintf("%d", v.Int)
	case VKBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case VKUnit:
		return "unit"
	case VKBlock:
		return fmt.Sprintf("block#%d", v.H)
	default:
		return fmt.Sprintf("<unknown:%d>", v.Kind)
	}
}

// MakeInt creates an integer value.
func MakeInt(n int64) Value {
	return Value{Kind: VKInt, Int: n}
}

// MakeBool creates a boolean value.
func MakeBool(b bool) Value {
	return Value{Kind: VKBool, Bool: b}
}

// MakeUnit creates the unit value.
func MakeUnit() Value {
	return Value{Kind: VKUnit}
}

// MakeBlock creates a block handle value.
func MakeBlock(h Handle) Value {
	return Value{Kind: VKBlock, H: h}
}
