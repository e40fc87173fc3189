package datalog

import (
	"encoding/binary"
	"math"
	"testing"
)

func le32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
func le64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		data    []byte
		want    string
		wantErr bool
	}{
		{name: "bool true", typ: TypeBoolean, data: []byte{1}, want: "true"},
		{name: "bool false", typ: TypeBoolean, data: []byte{0}, want: "false"},
		{name: "bool nonzero", typ: TypeBoolean, data: []byte{7}, want: "true"},
		{name: "bool empty", typ: TypeBoolean, data: nil, wantErr: true},
		{name: "int64", typ: TypeInt64, data: le64(1234), want: "1234"},
		{
			name: "int64 negative", typ: TypeInt64,
			data: le64(math.MaxUint64), want: "-1",
		},
		{name: "int64 short width", typ: TypeInt64, data: []byte{0xfe, 0xff}, want: "-2"},
		{name: "int64 empty", typ: TypeInt64, data: nil, want: "0"},
		{name: "int64 oversized", typ: TypeInt64, data: make([]byte, 9), wantErr: true},
		{
			name: "float", typ: TypeFloat,
			data: le32(math.Float32bits(1.5)), want: "1.5",
		},
		{name: "float wrong size", typ: TypeFloat, data: []byte{1, 2}, wantErr: true},
		{
			name: "double", typ: TypeDouble,
			data: le64(math.Float64bits(-2.25)), want: "-2.25",
		},
		{name: "double wrong size", typ: TypeDouble, data: []byte{1}, wantErr: true},
		{name: "string", typ: TypeString, data: []byte("hello"), want: "hello"},
		{name: "string empty", typ: TypeString, data: nil, want: ""},
		{
			name: "boolean array", typ: TypeBooleanArray,
			data: []byte{1, 0, 1}, want: "true,false,true",
		},
		{name: "boolean array empty", typ: TypeBooleanArray, data: nil, want: ""},
		{
			name: "int64 array", typ: TypeInt64Array,
			data: append(le64(1), le64(math.MaxUint64)...), want: "1,-1",
		},
		{
			name: "int64 array ignores remainder", typ: TypeInt64Array,
			data: append(le64(5), 0xab), want: "5",
		},
		{
			name: "float array", typ: TypeFloatArray,
			data: append(le32(math.Float32bits(0.5)), le32(math.Float32bits(2))...),
			want: "0.5,2",
		},
		{
			name: "double array", typ: TypeDoubleArray,
			data: append(le64(math.Float64bits(1.25)), le64(math.Float64bits(-3))...),
			want: "1.25,-3",
		},
		{
			name: "string array", typ: TypeStringArray,
			data: stringArrayPayload("a", "bc", ""), want: "a,bc,",
		},
		{
			name: "string array truncated", typ: TypeStringArray,
			data: stringArrayPayload("a", "bc")[:7], wantErr: true,
		},
		{name: "string array no count", typ: TypeStringArray, data: []byte{1}, wantErr: true},
		{
			// the count field is untrusted; a corrupt record claiming
			// 4 billion elements must fail fast, not allocate for them
			name: "string array lying count", typ: TypeStringArray,
			data: le32(0xffffffff), wantErr: true,
		},
		{name: "raw", typ: TypeRaw, data: []byte{0xde, 0xad}, want: "dead"},
		{name: "raw empty", typ: TypeRaw, data: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue(tt.typ, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DecodeValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func stringArrayPayload(elems ...string) []byte {
	buf := le32(uint32(len(elems)))
	for _, s := range elems {
		buf = append(buf, le32(uint32(len(s)))...)
		buf = append(buf, s...)
	}
	return buf
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{in: "boolean", want: TypeBoolean},
		{in: "int64[]", want: TypeInt64Array},
		{in: "string[]", want: TypeStringArray},
		{in: "raw", want: TypeRaw},
		{in: "struct:Pose2d", want: TypeRaw},
		{in: "", want: TypeRaw},
	}
	for _, tt := range tests {
		if got := ParseType(tt.in); got != tt.want {
			t.Errorf("ParseType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
