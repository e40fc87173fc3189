package convert

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/robotlog/replay-service-go/log"
	"github.com/robotlog/replay-service-go/pkg/datalog"
)

var csvHeader = []string{"timestamp", "key", "type", "value", "meta"}

// WriteCSV writes samples in the interchange format consumed by LOAD_CSV.
func WriteCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i := range samples {
		s := &samples[i]
		row := []string{
			strconv.FormatFloat(s.Timestamp, 'f', 6, 64),
			s.Key,
			s.Type.String(),
			s.Value,
			s.Metadata,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the interchange format. Rows may appear in any order;
// the result is sorted by timestamp. Malformed rows are skipped, rows
// with a timestamp beyond maxTimestamp are excluded. Rows without a
// meta column are accepted.
func ReadCSV(r io.Reader, maxTimestamp float64) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return []Sample{}, nil
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	samples := make([]Sample, 0, 1024)
	skipped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(row) < 4 {
			skipped++
			continue
		}
		ts, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			skipped++
			continue
		}
		if ts > maxTimestamp {
			continue
		}
		meta := ""
		if len(row) >= 5 {
			meta = row[4]
		}
		samples = append(samples, Sample{
			Timestamp: ts,
			Key:       row[1],
			Type:      datalog.ParseType(row[2]),
			Value:     row[3],
			Metadata:  meta,
		})
	}
	if skipped > 0 {
		log.Debug("skipped malformed csv rows", log.Int("count", skipped))
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})
	return samples, nil
}

// ReadCSVFile is ReadCSV over a file path.
func ReadCSVFile(path string, maxTimestamp float64) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, maxTimestamp)
}
