package datalog

// Type enumerates the value encodings a log entry can declare.
// Unknown type declarations map to TypeRaw and are passed through
// hex-encoded; the declared wire type travels out-of-band in the
// entry metadata.
type Type int

const (
	TypeRaw Type = iota
	TypeBoolean
	TypeInt64
	TypeFloat
	TypeDouble
	TypeString
	TypeBooleanArray
	TypeInt64Array
	TypeFloatArray
	TypeDoubleArray
	TypeStringArray
)

var typeNames = map[Type]string{
	TypeRaw:          "raw",
	TypeBoolean:      "boolean",
	TypeInt64:        "int64",
	TypeFloat:        "float",
	TypeDouble:       "double",
	TypeString:       "string",
	TypeBooleanArray: "boolean[]",
	TypeInt64Array:   "int64[]",
	TypeFloatArray:   "float[]",
	TypeDoubleArray:  "double[]",
	TypeStringArray:  "string[]",
}

var typesByName = func() map[string]Type {
	ret := make(map[string]Type, len(typeNames))
	for k, v := range typeNames {
		ret[v] = k
	}
	return ret
}()

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "raw"
}

// ParseType resolves a declared entry type. Anything not in the closed
// set (struct schemas, protobufs, ...) is treated as raw passthrough.
func ParseType(s string) Type {
	if t, ok := typesByName[s]; ok {
		return t
	}
	return TypeRaw
}
