package vm

import "fmt"

// TypeTag names a runtime type. Primitive tags keep the numbering that
// compiled code embeds as literal type values.
type TypeTag uint64

// Primitive tags.
const (
	TagBool      TypeTag = 1
	TagByte      TypeTag = 3
	TagCodepoint TypeTag = 7
	TagUInt      TypeTag = 8
	TagInt       TypeTag = 9
	TagFloat     TypeTag = 16
	TagType      TypeTag = 17
)

// Compound tags; these carry a deep type describing their structure.
const (
	TagRef TypeTag = 32 + iota
	TagArray
	TagList
	TagTuple
	TagStruct
	TagProc
)

var tagNames = map[TypeTag]string{
	TagBool:      "bool",
	TagByte:      "byte",
	TagCodepoint: "codepoint",
	TagUInt:      "uint",
	TagInt:       "int",
	TagFloat:     "float",
	TagType:      "type",
	TagRef:       "reference",
	TagArray:     "array",
	TagList:      "list",
	TagTuple:     "tuple",
	TagStruct:    "struct",
	TagProc:      "procedure",
}

func (tag TypeTag) String() string {
	if name, ok := tagNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint64(tag))
}

// Primitive returns true for tags that fit a single untyped slot.
func (tag TypeTag) Primitive() bool {
	switch tag {
	case TagBool, TagByte, TagCodepoint, TagUInt, TagInt, TagFloat, TagType:
		return true
	}
	return false
}

// Type is a runtime type descriptor. Primitive types are just a tag;
// compound types also name a deep type in the owning Heap.
type Type struct {
	Tag  TypeTag
	Deep DeepTypePtr
}

// Primitive types.
var (
	BoolType      = Type{Tag: TagBool, Deep: NoType}
	ByteType      = Type{Tag: TagByte, Deep: NoType}
	CodepointType = Type{Tag: TagCodepoint, Deep: NoType}
	UIntType      = Type{Tag: TagUInt, Deep: NoType}
	IntType       = Type{Tag: TagInt, Deep: NoType}
	FloatType     = Type{Tag: TagFloat, Deep: NoType}
	TypeType      = Type{Tag: TagType, Deep: NoType}
)

// IsDeep returns true if t refers to a deep type.
func (t Type) IsDeep() bool { return !t.Tag.Primitive() && t.Deep != NoType }

func (t Type) String() string {
	if t.IsDeep() {
		return fmt.Sprintf("%v#%d", t.Tag, t.Deep)
	}
	return t.Tag.String()
}

// kindOf maps primitive tags to the Value kind that stores them.
func kindOf(tag TypeTag) Kind {
	switch tag {
	case TagBool:
		return KindBool
	case TagByte:
		return KindByte
	case TagCodepoint:
		return KindCodepoint
	case TagUInt:
		return KindUInt
	case TagInt:
		return KindInt
	case TagFloat:
		return KindFloat
	case TagType:
		return KindType
	case TagRef, TagList:
		return KindRef
	}
	return KindNone
}
