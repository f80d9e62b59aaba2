package introspection

// UnwrapNamed strips NON_NULL and LIST wrappers and returns the innermost
// named type, or nil when the chain ends without one. There is no depth
// limit: termination relies on OfType eventually being nil, which holds for
// any payload produced by the bounded introspection query.
func UnwrapNamed(ref *TypeRef) *TypeRef {
	for ref != nil {
		if ref.Kind != KindNonNull && ref.Kind != KindList {
			if ref.Name == "" {
				return nil
			}
			return ref
		}
		ref = ref.OfType
	}
	return nil
}

// IsList reports whether any wrapper in the chain is a LIST.
func IsList(ref *TypeRef) bool {
	for ; ref != nil; ref = ref.OfType {
		if ref.Kind == KindList {
			return true
		}
	}
	return false
}

// IsListOf reports whether the chain contains a LIST wrapper and unwraps to
// the given named type.
func IsListOf(ref *TypeRef, name string) bool {
	if !IsList(ref) {
		return false
	}
	named := UnwrapNamed(ref)
	return named != nil && named.Name == name
}

// IsScalarOrEnum reports whether the kind is SCALAR or ENUM.
func IsScalarOrEnum(kind TypeKind) bool {
	return kind == KindScalar || kind == KindEnum
}
