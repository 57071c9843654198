package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

// validSubmission is a complete multiome payload with two reactions.
func validSubmission() Submission {
	return Submission{
		UserFirstName:        "Kate",
		Date:                 "251001",
		Marmoset:             "Petra",
		Slab:                 "5",
		Tile:                 "2",
		Hemisphere:           "LEFT",
		TileLocation:         "A1",
		SortMethod:           "pooled",
		RxnNumber:            "2",
		SorterInitials:       "kl",
		Project:              "HMBA_BasalGanglia",
		FacsPopulation:       "NeuN+",
		ElabLink:             "https://elab.example/entry/42",
		ExpectedRecovery:     "10000",
		NucleiConcentration:  "1,000",
		NucleiVolume:         "5",
		CdnaConcentration:    "1.5, 2.0",
		PercentCdna400bp:     "50, 60",
		CdnaPcrCycles:        "12, 12",
		CdnaAmpDate:          "251002",
		RnaLibConcentration:  "3.0, 4.0",
		RnaSizes:             "400, 410",
		LibraryCyclesRna:     "10, 11",
		RnaPrepDate:          "251003",
		AtacLibConcentration: "2.0, 2.5",
		AtacSizes:            "500, 510",
		LibraryCyclesAtac:    "8, 9",
		AtacPrepDate:         "251004",
		RnaIndices:           "12a, b3",
		AtacIndices:          "c4, d5",
	}
}

func mustParse(t *testing.T, sub Submission) *Parsed {
	t.Helper()
	p, err := ParseSubmission(sub)
	if err != nil {
		t.Fatalf("ParseSubmission: %v", err)
	}
	return p
}

func TestParseSubmission(t *testing.T) {
	p := mustParse(t, validSubmission())

	if p.MitName != "cjPetra" || p.DonorCode != "CJ23.56.001" {
		t.Fatalf("subject fields: %q %q", p.MitName, p.DonorCode)
	}
	if p.Slab.Slab != "05" || p.Tile != "02" {
		t.Fatalf("slab/tile: %q %q", p.Slab.Slab, p.Tile)
	}
	if p.SortStatus != "PS" || p.FacsPopulation != "NeuN+" {
		t.Fatalf("sort fields: %q %q", p.SortStatus, p.FacsPopulation)
	}
	if p.Initials != "KL" {
		t.Fatalf("initials %q", p.Initials)
	}
	if !reflect.DeepEqual(p.Modalities, []Modality{ModalityRNA, ModalityATAC}) {
		t.Fatalf("modalities %v", p.Modalities)
	}
	if !reflect.DeepEqual(p.RnaIndices, []string{"A12", "B03"}) {
		t.Fatalf("rna indices %v", p.RnaIndices)
	}
	if !reflect.DeepEqual(p.AtacIndices, []string{"C04", "D05"}) {
		t.Fatalf("atac indices %v", p.AtacIndices)
	}
	if p.NucleiConc != 1000 || p.EnrichedCellCount() != 5000 {
		t.Fatalf("nuclei math: %v %v", p.NucleiConc, p.EnrichedCellCount())
	}
	if p.AmpPrefix() != "APKLXR" {
		t.Fatalf("amp prefix %q", p.AmpPrefix())
	}
}

func TestParseSubmission_FirstMissingFieldReported(t *testing.T) {
	sub := validSubmission()
	sub.Marmoset = ""
	sub.Slab = ""
	_, err := ParseSubmission(sub)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Field != "marmoset" {
		t.Fatalf("expected marmoset validation error, got %v", err)
	}
}

func TestParseSubmission_Hemisphere(t *testing.T) {
	sub := validSubmission()
	sub.Hemisphere = "right (lateral)"
	p := mustParse(t, sub)
	if p.Hemisphere != "RIGHT" || p.Slab.Slab != "45" {
		t.Fatalf("hemisphere %q slab %q", p.Hemisphere, p.Slab.Slab)
	}

	sub.Hemisphere = "dorsal"
	if _, err := ParseSubmission(sub); err == nil {
		t.Fatalf("expected hemisphere rejection")
	}
}

func TestParseSubmission_SortMethods(t *testing.T) {
	cases := []struct {
		method     string
		wantStatus string
		wantFacs   string
	}{
		{"pooled", "PS", "NeuN+"},
		{"dapi", "PS", "DAPI"},
		{"unsorted", "PN", "no_FACS"},
		{"enriched", "PN", "DAPI"},
	}
	for _, tc := range cases {
		sub := validSubmission()
		sub.SortMethod = tc.method
		p := mustParse(t, sub)
		if p.SortStatus != tc.wantStatus || p.FacsPopulation != tc.wantFacs {
			t.Fatalf("%s: status %q facs %q, want %q %q",
				tc.method, p.SortStatus, p.FacsPopulation, tc.wantStatus, tc.wantFacs)
		}
	}
}

func TestParseSubmission_Aim4SkipsAtacFields(t *testing.T) {
	sub := validSubmission()
	sub.Project = ProjectAim4
	sub.Slab = "5, 6"
	sub.AtacLibConcentration = ""
	sub.AtacSizes = ""
	sub.LibraryCyclesAtac = ""
	sub.AtacPrepDate = ""
	sub.AtacIndices = ""

	p := mustParse(t, sub)
	if !reflect.DeepEqual(p.Modalities, []Modality{ModalityRNA}) {
		t.Fatalf("modalities %v", p.Modalities)
	}
	if p.Slab.CombinedLabel != "05_06" {
		t.Fatalf("combined label %q", p.Slab.CombinedLabel)
	}
}

func TestParseSubmission_BadIndexRejected(t *testing.T) {
	sub := validSubmission()
	sub.RnaIndices = "12a, zzz"
	_, err := ParseSubmission(sub)
	var ie IndexFormatError
	if !errors.As(err, &ie) || ie.Field != "rna_indices" || ie.Position != 1 {
		t.Fatalf("expected index format error at position 1, got %v", err)
	}
	if !IsRejection(err) {
		t.Fatalf("index error should classify as a rejection")
	}
}

func TestParseSubmission_ShortListRejected(t *testing.T) {
	sub := validSubmission()
	sub.CdnaConcentration = "1.5"
	_, err := ParseSubmission(sub)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Field != "cdna_concentration" {
		t.Fatalf("expected cdna_concentration error, got %v", err)
	}
}

func TestFlexString_AcceptsNumbers(t *testing.T) {
	var payload struct {
		Rxn FlexString `json:"rxn_number"`
		Exp FlexString `json:"expected_recovery"`
	}
	if err := json.Unmarshal([]byte(`{"rxn_number": 2, "expected_recovery": "10000"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Rxn != "2" || payload.Exp != "10000" {
		t.Fatalf("flex values %q %q", payload.Rxn, payload.Exp)
	}
}
