package dynamic

// TypeRef describes the declared shape of a dynamic value (can be wrapped).
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
	Left   *TypeRef // For Either
	Right  *TypeRef // For Either
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
	TypeRefKindEither  TypeRefKind = "EITHER"
)

// Built-in scalar names understood by Materialize.
const (
	ScalarInt     = "Int"
	ScalarFloat   = "Float"
	ScalarString  = "String"
	ScalarBoolean = "Boolean"
	ScalarJSON    = "JSON"
)

func NamedType(name string) *TypeRef { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

func ListType(of *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindList, OfType: of} }

func NonNullType(of *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: of} }

func EitherType(left, right *TypeRef) *TypeRef {
	return &TypeRef{Kind: TypeRefKindEither, Left: left, Right: right}
}

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

// Unwrap removes one level of wrapping (NonNull or List).
func (t *TypeRef) Unwrap() *TypeRef {
	if t == nil {
		return nil
	}
	return t.OfType
}

// NamedTypeOf returns the innermost named type, or "" for Either shapes.
func (t *TypeRef) NamedTypeOf() string {
	for t != nil {
		if t.Kind == TypeRefKindNamed {
			return t.Named
		}
		t = t.OfType
	}
	return ""
}

func (t *TypeRef) String() string {
	if t == nil {
		return "Unknown"
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindEither:
		return "Either<" + t.Left.String() + ", " + t.Right.String() + ">"
	default:
		return "Unknown"
	}
}
