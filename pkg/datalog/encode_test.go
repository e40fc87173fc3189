package datalog

import "encoding/binary"

// test helpers to synthesize log buffers

func newLogBuffer(extraHeader string, records ...[]byte) []byte {
	buf := []byte(magic)
	buf = append(buf, 0x00, 0x01) // format version
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(extraHeader)))
	buf = append(buf, extraHeader...)
	for _, r := range records {
		buf = append(buf, r...)
	}
	return buf
}

// encodeRecord builds a record with 4 byte entry/size fields and an
// 8 byte timestamp.
func encodeRecord(entry uint32, ts uint64, data []byte) []byte {
	head := byte(4-1) | byte(4-1)<<2 | byte(8-1)<<4
	buf := []byte{head}
	buf = binary.LittleEndian.AppendUint32(buf, entry)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	buf = binary.LittleEndian.AppendUint64(buf, ts)
	return append(buf, data...)
}

// encodeCompactRecord uses the smallest widths, 1 byte each.
func encodeCompactRecord(entry uint8, ts uint8, data []byte) []byte {
	buf := []byte{0x00, entry, byte(len(data)), ts}
	return append(buf, data...)
}

func startPayload(entry uint32, name, typ, meta string) []byte {
	buf := []byte{controlStart}
	buf = binary.LittleEndian.AppendUint32(buf, entry)
	for _, s := range []string{name, typ, meta} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

func finishPayload(entry uint32) []byte {
	buf := []byte{controlFinish}
	return binary.LittleEndian.AppendUint32(buf, entry)
}

func metadataPayload(entry uint32, meta string) []byte {
	buf := []byte{controlSetMetadata}
	buf = binary.LittleEndian.AppendUint32(buf, entry)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(meta)))
	return append(buf, meta...)
}
