package datalog

import (
	"encoding/binary"
	"errors"
)

// control record subtypes
const (
	controlStart       = 0
	controlFinish      = 1
	controlSetMetadata = 2
)

var ErrShortPayload = errors.New("payload too short")

// Record is a single decoded log record. Entry 0 marks control records,
// anything else carries a value payload for the referenced entry.
type Record struct {
	Entry     uint32
	Timestamp uint64 // microseconds
	Data      []byte
}

// StartData is the payload of a Start control record: it registers a new
// entry under the given id.
type StartData struct {
	Entry    uint32
	Name     string
	Type     string
	Metadata string
}

func (r *Record) IsControl() bool { return r.Entry == 0 }

func (r *Record) IsStart() bool {
	return r.IsControl() && len(r.Data) >= 17 && r.Data[0] == controlStart
}

func (r *Record) IsFinish() bool {
	return r.IsControl() && len(r.Data) == 5 && r.Data[0] == controlFinish
}

func (r *Record) IsSetMetadata() bool {
	return r.IsControl() && len(r.Data) >= 9 && r.Data[0] == controlSetMetadata
}

// StartData decodes a Start control payload. Callers should treat an
// error as an unrecognized control record and skip it.
func (r *Record) StartData() (StartData, error) {
	entry := binary.LittleEndian.Uint32(r.Data[1:5])
	name, pos, err := readInnerString(r.Data, 5)
	if err != nil {
		return StartData{}, err
	}
	typ, pos, err := readInnerString(r.Data, pos)
	if err != nil {
		return StartData{}, err
	}
	meta, _, err := readInnerString(r.Data, pos)
	if err != nil {
		return StartData{}, err
	}
	return StartData{Entry: entry, Name: name, Type: typ, Metadata: meta}, nil
}

// FinishEntry returns the entry id retired by a Finish control record.
func (r *Record) FinishEntry() uint32 {
	return binary.LittleEndian.Uint32(r.Data[1:5])
}

// MetadataData decodes a SetMetadata control payload.
func (r *Record) MetadataData() (entry uint32, metadata string, err error) {
	entry = binary.LittleEndian.Uint32(r.Data[1:5])
	length := int(binary.LittleEndian.Uint32(r.Data[5:9]))
	if 9+length > len(r.Data) {
		return 0, "", ErrShortPayload
	}
	return entry, string(r.Data[9 : 9+length]), nil
}

func readInnerString(data []byte, pos int) (string, int, error) {
	if pos+4 > len(data) {
		return "", 0, ErrShortPayload
	}
	length := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	end := pos + 4 + length
	if end > len(data) {
		return "", 0, ErrShortPayload
	}
	return string(data[pos+4 : end]), end, nil
}
