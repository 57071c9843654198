package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lakmecaceres/DataLoggerWeb/internal/sheet"
)

// Counter state is never stored on its own: it is reconstructed by scanning
// the rows already written to the log. That makes the log the single source
// of truth, so a conflict retry that re-reads the log automatically re-derives
// consistent counters.

// barcodedNameRe matches barcoded_cell_sample_name values: P{chip %04d}_{well}.
var barcodedNameRe = regexp.MustCompile(`^P(\d{4})_([1-8])$`)

// ChipState is the chip/well usage derived from a log for one experiment date.
type ChipState struct {
	// Wells maps chip number to the highest well used on that chip for the
	// date. A chip present here is continued, never restarted.
	Wells map[int]int
	// MaxChip is the greatest chip number observed for the date, 0 if none.
	MaxChip int
	// GlobalMaxChip is the greatest chip number observed anywhere in the log,
	// used to keep chips monotonic across dates.
	GlobalMaxChip int
}

// DeriveChipState scans the log for chip/well usage on the given date.
func DeriveChipState(t *sheet.Table, date string) ChipState {
	st := ChipState{Wells: make(map[int]int)}
	for i := 0; i < t.NumRows(); i++ {
		m := barcodedNameRe.FindStringSubmatch(t.Value(i, "barcoded_cell_sample_name"))
		if m == nil {
			continue
		}
		chip, _ := strconv.Atoi(m[1])
		well, _ := strconv.Atoi(m[2])
		if chip > st.GlobalMaxChip {
			st.GlobalMaxChip = chip
		}
		if t.Value(i, "experiment_start_date") != date {
			continue
		}
		if well > st.Wells[chip] {
			st.Wells[chip] = well
		}
		if chip > st.MaxChip {
			st.MaxChip = chip
		}
	}
	return st
}

// AmpCode is one amplification batch/letter position.
type AmpCode struct {
	Batch  int
	Letter byte
}

// Next advances one step: letter increments until 'H', then wraps to 'A'
// with the batch moving forward.
func (c AmpCode) Next() AmpCode {
	if c.Letter >= 'H' {
		return AmpCode{Batch: c.Batch + 1, Letter: 'A'}
	}
	return AmpCode{Batch: c.Batch, Letter: c.Letter + 1}
}

// Name renders the full amplified cDNA name for a prefix and date.
func (c AmpCode) Name(prefix, date string) string {
	return fmt.Sprintf("%s_%s_%d_%c", prefix, date, c.Batch, c.Letter)
}

// DeriveNextAmpCode scans amplified_cdna_name values for the (prefix, date)
// pair and returns the code following the greatest one present, or (1, 'A')
// when the pair has no rows yet.
func DeriveNextAmpCode(t *sheet.Table, prefix, date string) AmpCode {
	want := prefix + "_" + date + "_"
	best := AmpCode{}
	found := false
	for i := 0; i < t.NumRows(); i++ {
		name := t.Value(i, "amplified_cdna_name")
		if !strings.HasPrefix(name, want) {
			continue
		}
		rest := strings.Split(strings.TrimPrefix(name, want), "_")
		if len(rest) != 2 || len(rest[1]) != 1 {
			continue
		}
		batch, err := strconv.Atoi(rest[0])
		if err != nil || batch < 1 {
			continue
		}
		letter := rest[1][0]
		if letter < 'A' || letter > 'H' {
			continue
		}
		code := AmpCode{Batch: batch, Letter: letter}
		if !found || code.Batch > best.Batch || (code.Batch == best.Batch && code.Letter > best.Letter) {
			best = code
			found = true
		}
	}
	if !found {
		return AmpCode{Batch: 1, Letter: 'A'}
	}
	return best.Next()
}

// PrepKey identifies a library prep duplicate-counter bucket.
type PrepKey struct {
	Type  string // e.g. LPHMXR
	Date  string // library prep date, YYMMDD
	Index string // padded sequencing index
}

// DerivePrepCounts scans library_name values ({type}_{date}_{n}_{index}) and
// returns the highest duplicate counter seen per (type, date, index). Seeding
// the per-submission counter from the log keeps library_prep_set unique even
// when the same key recurs across separate submissions.
func DerivePrepCounts(t *sheet.Table) map[PrepKey]int {
	counts := make(map[PrepKey]int)
	for i := 0; i < t.NumRows(); i++ {
		parts := strings.Split(t.Value(i, "library_name"), "_")
		if len(parts) != 4 {
			continue
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 1 {
			continue
		}
		key := PrepKey{Type: parts[0], Date: parts[1], Index: parts[3]}
		if n > counts[key] {
			counts[key] = n
		}
	}
	return counts
}
