package core

// WellsPerChip is the physical well capacity of one chip.
const WellsPerChip = 8

// BaselineChip is the starting chip number for a log with no history.
const BaselineChip = 90

// WellAssignment is one reaction's (chip, well) slot.
type WellAssignment struct {
	Chip int
	Well int
}

// StartingChip selects the chip pointer for an allocation. An operator
// override wins unconditionally; otherwise a date with existing rows
// continues on its greatest chip, and a fresh date starts past every chip
// ever used so chip numbers stay monotonic across dates.
func StartingChip(st ChipState, override *int) int {
	if override != nil {
		return *override
	}
	if st.MaxChip > 0 {
		return st.MaxChip
	}
	next := st.GlobalMaxChip + 1
	if next < BaselineChip {
		next = BaselineChip
	}
	return next
}

// AssignWells allocates n (chip, well) pairs against the derived state.
// Wells run 1..8 per chip in strict increasing order; a full chip rolls to
// the next one, which resumes at whatever usage the date already recorded
// for it. The returned pointer is the chip a following submission should
// start from (the last chip, or the one after it when it filled up).
func AssignWells(st ChipState, n int, override *int) (assignments []WellAssignment, nextPointer int) {
	usage := make(map[int]int, len(st.Wells))
	for chip, used := range st.Wells {
		usage[chip] = used
	}
	chip := StartingChip(st, override)
	used := usage[chip]
	assignments = make([]WellAssignment, 0, n)
	for i := 0; i < n; i++ {
		if used == WellsPerChip {
			chip++
			used = usage[chip]
		}
		used++
		usage[chip] = used
		assignments = append(assignments, WellAssignment{Chip: chip, Well: used})
	}
	nextPointer = chip
	if used == WellsPerChip {
		nextPointer = chip + 1
	}
	return assignments, nextPointer
}

// AssignAmpCodes returns n consecutive amplification codes starting at start.
func AssignAmpCodes(start AmpCode, n int) []AmpCode {
	codes := make([]AmpCode, n)
	code := start
	for i := 0; i < n; i++ {
		codes[i] = code
		code = code.Next()
	}
	return codes
}
