// Package recorder appends periodic fan status rows to a CSV file,
// mainly for thermal tuning runs.
package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Recorder writes one CSV row per poll tick.
type Recorder struct {
	file     *os.File
	w        *csv.Writer
	channels int
}

// Row is the data recorded for one tick.
type Row struct {
	Percents   []int
	RPMs       []float64
	ActiveFans int
	Stopped    bool
}

// New opens (or creates) the CSV file at path and writes the header if
// the file is empty. channels fixes the column count for the life of
// the file.
func New(path string, channels int) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: stat %s: %w", path, err)
	}

	r := &Recorder{file: f, w: csv.NewWriter(f), channels: channels}

	if info.Size() == 0 {
		if err := r.w.Write(header(channels)); err != nil {
			f.Close()
			return nil, fmt.Errorf("recorder: write header: %w", err)
		}
		r.w.Flush()
		if err := r.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("recorder: flush header: %w", err)
		}
	}

	return r, nil
}

func header(channels int) []string {
	cols := []string{"timestamp"}
	for i := 0; i < channels; i++ {
		cols = append(cols, fmt.Sprintf("fan_%d_percent", i))
	}
	for i := 0; i < channels; i++ {
		cols = append(cols, fmt.Sprintf("fan_%d_rpm", i))
	}
	cols = append(cols, "active_fans", "stopped")
	return cols
}

// Append writes one row. Rows with the wrong channel count are
// rejected so the file columns stay aligned.
func (r *Recorder) Append(now time.Time, row Row) error {
	if len(row.Percents) != r.channels || len(row.RPMs) != r.channels {
		return fmt.Errorf("recorder: row has %d/%d channels, want %d",
			len(row.Percents), len(row.RPMs), r.channels)
	}

	cols := []string{now.UTC().Format(time.RFC3339)}
	for _, p := range row.Percents {
		cols = append(cols, strconv.Itoa(p))
	}
	for _, rpm := range row.RPMs {
		cols = append(cols, strconv.FormatFloat(rpm, 'f', 1, 64))
	}
	cols = append(cols, strconv.Itoa(row.ActiveFans), strconv.FormatBool(row.Stopped))

	if err := r.w.Write(cols); err != nil {
		return fmt.Errorf("recorder: write row: %w", err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("recorder: flush row: %w", err)
	}
	return nil
}

// Close flushes pending rows and closes the file.
func (r *Recorder) Close() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		r.file.Close()
		return fmt.Errorf("recorder: flush: %w", err)
	}
	return r.file.Close()
}
