package sema

import (
	"fmt"
	"strings"
)

// TKind discriminates the cases of Type.
type TKind int

const (
	Empty TKind = iota // no type inferred yet ("" in the distilled spec's strings)
	Integer
	Float
	Void
	ClassType
	ArrayType
	TypeErr // the sentinel used to avoid cascading duplicate diagnostics
)

// Type is the sum-type replacement for the original implementation's
// string-encoded inferred types (design note, distilled spec section 9 /
// SPEC_FULL section 3): {Kind, ClassName, ElemKind, ElemClass, Dims}. A
// scalar integer/float/void carries only Kind. A class-valued type carries
// ClassName. An array type carries the element's Kind/ClassName (ElemKind,
// ElemClass) plus one entry in Dims per declared dimension -- Dims[i] == 0
// means "unsized", the formal-parameter-array case of distilled spec 4.7.
type Type struct {
	Kind      TKind
	ClassName string
	ElemKind  TKind
	ElemClass string
	Dims      []int
}

// Scalar constructors.
var (
	IntegerT = Type{Kind: Integer}
	FloatT   = Type{Kind: Float}
	VoidT    = Type{Kind: Void}
	ErrorT   = Type{Kind: TypeErr}
)

// Class builds a class-valued Type.
func Class(name string) Type { return Type{Kind: ClassType, ClassName: name} }

// Array builds an array type from a scalar/class element type and a list
// of declared dimensions (0 for an unsized/formal-parameter dimension).
func Array(elem Type, dims []int) Type {
	return Type{Kind: ArrayType, ElemKind: elem.Kind, ElemClass: elem.ClassName, Dims: append([]int(nil), dims...)}
}

// Elem returns the element type of an array type (undefined for non-arrays).
func (t Type) Elem() Type {
	return Type{Kind: t.ElemKind, ClassName: t.ElemClass}
}

// DropDim returns the type obtained by indexing away the outermost
// dimension: an array with more than one remaining dimension stays an
// array with one fewer Dims entry; an array with exactly one dimension
// degenerates to its scalar/class element type.
func (t Type) DropDim() Type {
	if t.Kind != ArrayType || len(t.Dims) == 0 {
		return t
	}
	if len(t.Dims) == 1 {
		return t.Elem()
	}
	return Type{Kind: ArrayType, ElemKind: t.ElemKind, ElemClass: t.ElemClass, Dims: t.Dims[1:]}
}

// IsScalar reports whether t is integer or float (the only types the
// arithmetic/relational operators accept).
func (t Type) IsScalar() bool { return t.Kind == Integer || t.Kind == Float }

// IsError reports whether t is the propagation sentinel.
func (t Type) IsError() bool { return t.Kind == TypeErr }

// Equal reports whether two types denote the same declared type, including
// array suffixes -- the rule Assign's type check applies.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case ClassType:
		return t.ClassName == o.ClassName
	case ArrayType:
		if t.ElemKind != o.ElemKind || t.ElemClass != o.ElemClass || len(t.Dims) != len(o.Dims) {
			return false
		}
		for i := range t.Dims {
			if t.Dims[i] != o.Dims[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String formats t to the textual grammar the distilled spec's string-typed
// model used: "", "integer", "float", a class name, or a "<base>[]"-suffixed
// array type, with the sentinel "typeerror" for TypeErr.
func (t Type) String() string {
	switch t.Kind {
	case Empty:
		return ""
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Void:
		return "void"
	case ClassType:
		return t.ClassName
	case TypeErr:
		return "typeerror"
	case ArrayType:
		base := t.Elem().String()
		return base + strings.Repeat("[]", len(t.Dims))
	}
	return "?"
}

// Signature formats a function's canonical signature string:
// "<scope>::<name>(<type1>, <type2>, …)", scope empty for free functions.
func Signature(scope, name string, paramTypes []Type) string {
	parts := make([]string, len(paramTypes))
	for i, pt := range paramTypes {
		parts[i] = pt.String()
	}
	return fmt.Sprintf("%s::%s(%s)", scope, name, strings.Join(parts, ", "))
}

// ElementSize returns the size in bytes of a scalar/class-resolved element
// type, given a class-size lookup for class-valued types. Used by MemSize
// and (per the resolved Open Question in SPEC_FULL 4.7) by array-index
// stride computation in CodeGen, instead of the original's hardcoded 4.
func ElementSize(t Type, classSize func(string) int) int {
	switch t.Kind {
	case Integer:
		return 4
	case Float:
		return 8
	case Void:
		return 0
	case ClassType:
		return classSize(t.ClassName)
	case ArrayType:
		return t.Elem().sizeOf(classSize)
	}
	return 0
}

func (t Type) sizeOf(classSize func(string) int) int {
	return ElementSize(t, classSize)
}
