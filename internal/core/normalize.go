package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Project identifies the study a submission belongs to. Cortex and Aim4 are
// multi-slab projects; everything else is treated as single-slab.
const (
	ProjectCortex = "HMBA_CjAtlas_Cortex"
	ProjectAim4   = "HMBA_Aim4"
)

// multiSlab reports whether project uses comma-separated slab lists.
func multiSlab(project string) bool {
	return project == ProjectCortex || project == ProjectAim4
}

// freeFormDateLayouts are tried in order when the input is not already a
// 6-digit %y%m%d string.
var freeFormDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// NormalizeDate canonicalizes a date input to a YYMMDD string. An input whose
// digits already form a valid %y%m%d date passes through verbatim; otherwise
// free-form layouts are attempted and the result reformatted.
func NormalizeDate(field, input string) (string, error) {
	var digits strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if clean := digits.String(); len(clean) == 6 {
		if _, err := time.Parse("060102", clean); err == nil {
			return clean, nil
		}
	}
	trimmed := strings.TrimSpace(input)
	for _, layout := range freeFormDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format("060102"), nil
		}
	}
	return "", DateParseError{Field: field, Input: input}
}

// NormalizeIndex canonicalizes a sequencing index to its 3-character
// {letter}{digit}{digit} form. Unrecognized shapes yield the empty string;
// the caller decides whether that is fatal for the position it fills.
func NormalizeIndex(input string) string {
	idx := strings.ToUpper(strings.TrimSpace(input))
	switch len(idx) {
	case 3:
		if isDigit(idx[0]) && isDigit(idx[1]) && isAlpha(idx[2]) {
			return string(idx[2]) + idx[:2]
		}
		if isAlpha(idx[0]) && isDigit(idx[1]) && isDigit(idx[2]) {
			return idx
		}
	case 2:
		if isDigit(idx[0]) && isAlpha(idx[1]) {
			return fmt.Sprintf("%c0%c", idx[1], idx[0])
		}
		if isAlpha(idx[0]) && isDigit(idx[1]) {
			return fmt.Sprintf("%c0%c", idx[0], idx[1])
		}
	}
	return ""
}

// PadIndex left-pads a {letter}{digit} index to {letter}0{digit}. Any other
// shape passes through unchanged, which keeps it idempotent with
// NormalizeIndex.
func PadIndex(index string) string {
	if len(index) == 2 && isAlpha(index[0]) && isDigit(index[1]) {
		return fmt.Sprintf("%c0%c", index[0], index[1])
	}
	return index
}

// SlabSpec is the resolved slab numbering for a submission.
type SlabSpec struct {
	// Slab is the single-value slab label, zero-padded to 2 digits. For
	// multi-slab projects it is the first padded entry.
	Slab string
	// CombinedLabel joins all padded entries with underscores; empty for
	// single-slab projects.
	CombinedLabel string
	// Count is the number of slab entries.
	Count int
}

// ResolveSlab applies the slab numbering rules. Multi-slab projects take a
// comma-separated list, each entry padded independently, order preserved and
// no hemisphere offset. Single-slab projects apply the hemisphere offset:
// LEFT none, RIGHT +40, BOTH +90.
func ResolveSlab(project, rawSlab, hemisphere string) (SlabSpec, error) {
	raw := strings.TrimSpace(rawSlab)
	if multiSlab(project) {
		var padded []string
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			padded = append(padded, zeroPad2(s))
		}
		if len(padded) == 0 {
			return SlabSpec{}, ValidationError{Field: "slab", Reason: fmt.Sprintf("no valid slab numbers provided for %s", project)}
		}
		return SlabSpec{Slab: padded[0], CombinedLabel: strings.Join(padded, "_"), Count: len(padded)}, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return SlabSpec{}, ValidationError{Field: "slab", Reason: fmt.Sprintf("slab %q is not a number", raw)}
	}
	switch hemisphere {
	case "RIGHT":
		n += 40
	case "BOTH":
		n += 90
	}
	return SlabSpec{Slab: fmt.Sprintf("%02d", n), Count: 1}, nil
}

// ResolveTile normalizes numeric tiles to zero-padded 2-digit strings.
// Non-numeric tokens (anatomical abbreviations such as "EC") pass through.
func ResolveTile(raw string) string {
	tile := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(tile); err == nil {
		return fmt.Sprintf("%02d", n)
	}
	return tile
}

func zeroPad2(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool { return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') }
