// Package convert turns decoded datalog records into the rectangular
// sample representation used by the replay pipeline, and reads/writes
// the CSV interchange form of it.
package convert

import (
	"sort"

	"github.com/robotlog/replay-service-go/pkg/datalog"
)

// Sample is one value change: timestamp in seconds, the entry name it
// belongs to, and the string-encoded value.
type Sample struct {
	Timestamp float64
	Key       string
	Type      datalog.Type
	Value     string
	Metadata  string
}

// logEntry is the live registry state for one entry id. The registry
// only exists for the duration of a single projection pass.
type logEntry struct {
	name     string
	typ      datalog.Type
	metadata string
}

// Project runs a single forward pass over the record stream and emits
// one sample per resolvable data record, sorted by timestamp (stable,
// record order breaks ties). Control records mutate the entry registry
// and produce no samples. Data records referencing an unknown or
// already finished entry are dropped; a value that fails to decode
// yields an empty value instead of aborting the pass.
func Project(r *datalog.Reader) []Sample {
	entries := make(map[uint32]*logEntry)
	samples := make([]Sample, 0, 1024)

	it := r.Records()
	for rec := it.Next(); rec != nil; rec = it.Next() {
		switch {
		case rec.IsStart():
			sd, err := rec.StartData()
			if err != nil {
				continue
			}
			entries[sd.Entry] = &logEntry{
				name:     sd.Name,
				typ:      datalog.ParseType(sd.Type),
				metadata: sd.Metadata,
			}
		case rec.IsFinish():
			delete(entries, rec.FinishEntry())
		case rec.IsSetMetadata():
			entry, meta, err := rec.MetadataData()
			if err != nil {
				continue
			}
			if e, ok := entries[entry]; ok {
				e.metadata = meta
			}
		case rec.IsControl():
			// unrecognized control subtype
		default:
			e, ok := entries[rec.Entry]
			if !ok {
				continue
			}
			val, err := datalog.DecodeValue(e.typ, rec.Data)
			if err != nil {
				val = ""
			}
			samples = append(samples, Sample{
				Timestamp: float64(rec.Timestamp) / 1e6,
				Key:       e.name,
				Type:      e.typ,
				Value:     val,
				Metadata:  e.metadata,
			})
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})
	return samples
}
