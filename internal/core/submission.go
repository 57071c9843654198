package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexString is a string that also accepts a bare JSON number, since the form
// frontend is inconsistent about quoting numeric inputs.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Submission is one form payload. Field names follow the form contract.
type Submission struct {
	UserFirstName        string     `json:"user_first_name"`
	Date                 string     `json:"date"`
	Marmoset             string     `json:"marmoset"`
	Slab                 string     `json:"slab"`
	Tile                 string     `json:"tile"`
	Hemisphere           string     `json:"hemisphere"`
	TileLocation         string     `json:"tile_location"`
	SortMethod           string     `json:"sort_method"`
	RxnNumber            FlexString `json:"rxn_number"`
	SorterInitials       string     `json:"sorter_initials"`
	Project              string     `json:"project"`
	FacsPopulation       string     `json:"facs_population"`
	ElabLink             string     `json:"elab_link"`
	ExpectedRecovery     FlexString `json:"expected_recovery"`
	NucleiConcentration  FlexString `json:"nuclei_concentration"`
	NucleiVolume         FlexString `json:"nuclei_volume"`
	CdnaConcentration    FlexString `json:"cdna_concentration"`
	PercentCdna400bp     FlexString `json:"percent_cdna_400bp"`
	CdnaPcrCycles        FlexString `json:"cdna_pcr_cycles"`
	CdnaAmpDate          string     `json:"cdna_amp_date"`
	RnaLibConcentration  FlexString `json:"rna_lib_concentration"`
	RnaSizes             FlexString `json:"rna_sizes"`
	LibraryCyclesRna     FlexString `json:"library_cycles_rna"`
	RnaPrepDate          string     `json:"rna_prep_date"`
	AtacLibConcentration FlexString `json:"atac_lib_concentration"`
	AtacSizes            FlexString `json:"atac_sizes"`
	LibraryCyclesAtac    FlexString `json:"library_cycles_atac"`
	AtacPrepDate         string     `json:"atac_prep_date"`
	RnaIndices           string     `json:"rna_indices"`
	AtacIndices          string     `json:"atac_indices"`
}

// Modality is the assay type of a produced row.
type Modality string

const (
	ModalityRNA  Modality = "RNA"
	ModalityATAC Modality = "ATAC"
)

// Parsed holds a fully normalized and validated submission, ready for
// assignment and composition. All derivation failures happen here, before
// anything touches the log.
type Parsed struct {
	Date           string // experiment start date, YYMMDD
	MitName        string // "cj" + marmoset name
	DonorCode      string
	Project        string
	Slab           SlabSpec
	Tile           string
	TileLocation   string
	Hemisphere     string
	SortMethod     string
	SortStatus     string // PS for pooled/DAPI sorts, PN otherwise
	FacsPopulation string
	Initials       string
	RxnNumber      int
	Modalities     []Modality

	ExpectedRecovery int
	NucleiConc       float64
	NucleiVolume     float64

	// RNA-modality per-reaction arrays, each at least RxnNumber long.
	CdnaConc      []float64
	PercentCdna   []float64
	CdnaPcrCycles []int
	RnaLibConc    []float64
	RnaSizes      []int
	RnaCycles     []int
	RnaIndices    []string
	RnaPrepDate   string
	CdnaAmpDate   string

	// ATAC-modality per-reaction arrays.
	AtacLibConc  []float64
	AtacSizes    []int
	AtacCycles   []int
	AtacIndices  []string
	AtacPrepDate string

	ElabLink string
}

// requiredFields is checked in order so the caller always learns the first
// missing field, matching the form contract.
var requiredFields = []struct {
	name  string
	value func(*Submission) string
}{
	{"user_first_name", func(s *Submission) string { return s.UserFirstName }},
	{"date", func(s *Submission) string { return s.Date }},
	{"marmoset", func(s *Submission) string { return s.Marmoset }},
	{"slab", func(s *Submission) string { return s.Slab }},
	{"tile", func(s *Submission) string { return s.Tile }},
	{"hemisphere", func(s *Submission) string { return s.Hemisphere }},
	{"tile_location", func(s *Submission) string { return s.TileLocation }},
	{"sort_method", func(s *Submission) string { return s.SortMethod }},
	{"rxn_number", func(s *Submission) string { return string(s.RxnNumber) }},
	{"sorter_initials", func(s *Submission) string { return s.SorterInitials }},
	{"project", func(s *Submission) string { return s.Project }},
	{"expected_recovery", func(s *Submission) string { return string(s.ExpectedRecovery) }},
	{"nuclei_concentration", func(s *Submission) string { return string(s.NucleiConcentration) }},
	{"nuclei_volume", func(s *Submission) string { return string(s.NucleiVolume) }},
}

// ParseSubmission validates and normalizes a submission.
func ParseSubmission(sub Submission) (*Parsed, error) {
	for _, f := range requiredFields {
		if strings.TrimSpace(f.value(&sub)) == "" {
			return nil, ValidationError{Field: f.name}
		}
	}

	date, err := NormalizeDate("date", sub.Date)
	if err != nil {
		return nil, err
	}
	donorCode, err := SubjectCode(sub.Marmoset)
	if err != nil {
		return nil, err
	}

	hemisphere := strings.ToUpper(strings.Fields(sub.Hemisphere)[0])
	switch hemisphere {
	case "LEFT", "RIGHT", "BOTH":
	default:
		return nil, ValidationError{Field: "hemisphere", Reason: fmt.Sprintf("must be LEFT, RIGHT or BOTH, got %q", hemisphere)}
	}

	slab, err := ResolveSlab(sub.Project, sub.Slab, hemisphere)
	if err != nil {
		return nil, err
	}

	rxn, err := strconv.Atoi(strings.TrimSpace(string(sub.RxnNumber)))
	if err != nil || rxn <= 0 {
		return nil, ValidationError{Field: "rxn_number", Reason: "must be a positive integer"}
	}

	sortMethod := sub.SortMethod
	if strings.EqualFold(sortMethod, "dapi") {
		sortMethod = strings.ToUpper(sortMethod)
	}
	sortStatus := "PN"
	switch strings.ToLower(sortMethod) {
	case "pooled", "dapi":
		sortStatus = "PS"
	}
	facs := "DAPI"
	switch strings.ToLower(sortMethod) {
	case "pooled":
		facs = sub.FacsPopulation
	case "unsorted":
		facs = "no_FACS"
	}

	expected, err := strconv.Atoi(strings.TrimSpace(string(sub.ExpectedRecovery)))
	if err != nil {
		return nil, ValidationError{Field: "expected_recovery", Reason: "must be an integer"}
	}
	nucleiConc, err := parseFloatField("nuclei_concentration", strings.ReplaceAll(string(sub.NucleiConcentration), ",", ""))
	if err != nil {
		return nil, err
	}
	nucleiVol, err := parseFloatField("nuclei_volume", string(sub.NucleiVolume))
	if err != nil {
		return nil, err
	}

	p := &Parsed{
		Date:             date,
		MitName:          "cj" + sub.Marmoset,
		DonorCode:        donorCode,
		Project:          sub.Project,
		Slab:             slab,
		Tile:             ResolveTile(sub.Tile),
		TileLocation:     strings.TrimSpace(sub.TileLocation),
		Hemisphere:       hemisphere,
		SortMethod:       sortMethod,
		SortStatus:       sortStatus,
		FacsPopulation:   facs,
		Initials:         strings.ToUpper(strings.TrimSpace(sub.SorterInitials)),
		RxnNumber:        rxn,
		Modalities:       modalitiesFor(sub.Project),
		ExpectedRecovery: expected,
		NucleiConc:       nucleiConc,
		NucleiVolume:     nucleiVol,
		ElabLink:         strings.TrimSpace(sub.ElabLink),
	}

	if err := parseRNAFields(&sub, p); err != nil {
		return nil, err
	}
	if p.hasModality(ModalityATAC) {
		if err := parseATACFields(&sub, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Parsed) hasModality(m Modality) bool {
	for _, have := range p.Modalities {
		if have == m {
			return true
		}
	}
	return false
}

// EnrichedCellCount is round(nuclei concentration x volume).
func (p *Parsed) EnrichedCellCount() int {
	return int(math.Round(p.NucleiConc * p.NucleiVolume))
}

// modalitiesFor returns the rows each reaction produces: Aim4 runs RNA only,
// everything else runs the multiome RNA+ATAC pair.
func modalitiesFor(project string) []Modality {
	if project == ProjectAim4 {
		return []Modality{ModalityRNA}
	}
	return []Modality{ModalityRNA, ModalityATAC}
}

func parseRNAFields(sub *Submission, p *Parsed) error {
	var err error
	if p.RnaPrepDate, err = parseDateField("rna_prep_date", sub.RnaPrepDate); err != nil {
		return err
	}
	if p.CdnaAmpDate, err = parseDateField("cdna_amp_date", sub.CdnaAmpDate); err != nil {
		return err
	}
	if p.CdnaConc, err = parseFloats("cdna_concentration", string(sub.CdnaConcentration), p.RxnNumber); err != nil {
		return err
	}
	if p.PercentCdna, err = parseFloats("percent_cdna_400bp", string(sub.PercentCdna400bp), p.RxnNumber); err != nil {
		return err
	}
	if p.CdnaPcrCycles, err = parseInts("cdna_pcr_cycles", string(sub.CdnaPcrCycles), p.RxnNumber); err != nil {
		return err
	}
	if p.RnaLibConc, err = parseFloats("rna_lib_concentration", string(sub.RnaLibConcentration), p.RxnNumber); err != nil {
		return err
	}
	if p.RnaSizes, err = parseInts("rna_sizes", string(sub.RnaSizes), p.RxnNumber); err != nil {
		return err
	}
	if p.RnaCycles, err = parseInts("library_cycles_rna", string(sub.LibraryCyclesRna), p.RxnNumber); err != nil {
		return err
	}
	if p.RnaIndices, err = parseIndices("rna_indices", sub.RnaIndices, p.RxnNumber); err != nil {
		return err
	}
	return nil
}

func parseATACFields(sub *Submission, p *Parsed) error {
	var err error
	if p.AtacPrepDate, err = parseDateField("atac_prep_date", sub.AtacPrepDate); err != nil {
		return err
	}
	if p.AtacLibConc, err = parseFloats("atac_lib_concentration", string(sub.AtacLibConcentration), p.RxnNumber); err != nil {
		return err
	}
	if p.AtacSizes, err = parseInts("atac_sizes", string(sub.AtacSizes), p.RxnNumber); err != nil {
		return err
	}
	if p.AtacCycles, err = parseInts("library_cycles_atac", string(sub.LibraryCyclesAtac), p.RxnNumber); err != nil {
		return err
	}
	if p.AtacIndices, err = parseIndices("atac_indices", sub.AtacIndices, p.RxnNumber); err != nil {
		return err
	}
	return nil
}

func parseDateField(field, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", ValidationError{Field: field}
	}
	return NormalizeDate(field, value)
}

func parseFloatField(field, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a number", value)}
	}
	return f, nil
}

func splitList(field, value string, n int) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, ValidationError{Field: field}
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < n {
		return nil, ValidationError{Field: field, Reason: fmt.Sprintf("expected %d comma-separated values, got %d", n, len(parts))}
	}
	return parts, nil
}

func parseFloats(field, value string, n int) ([]float64, error) {
	parts, err := splitList(field, value, n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, ValidationError{Field: field, Reason: fmt.Sprintf("value %d (%q) is not a number", i+1, part)}
		}
		out[i] = f
	}
	return out, nil
}

func parseInts(field, value string, n int) ([]int, error) {
	parts, err := splitList(field, value, n)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, ValidationError{Field: field, Reason: fmt.Sprintf("value %d (%q) is not an integer", i+1, part)}
		}
		out[i] = v
	}
	return out, nil
}

func parseIndices(field, value string, n int) ([]string, error) {
	parts, err := splitList(field, value, n)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(parts))
	for i, part := range parts {
		idx := PadIndex(NormalizeIndex(part))
		if idx == "" {
			return nil, IndexFormatError{Field: field, Position: i, Input: part}
		}
		out[i] = idx
	}
	return out, nil
}
