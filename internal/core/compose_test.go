package core

import (
	"testing"

	"github.com/lakmecaceres/DataLoggerWeb/internal/sheet"
)

func composeValid(t *testing.T, p *Parsed, prepCounts map[PrepKey]int) []sheet.Row {
	t.Helper()
	wells, _ := AssignWells(ChipState{Wells: map[int]int{}}, p.RxnNumber, nil)
	rows, err := ComposeRows(p, wells, AmpCode{Batch: 1, Letter: 'A'}, prepCounts)
	if err != nil {
		t.Fatalf("ComposeRows: %v", err)
	}
	return rows
}

func rowValue(t *testing.T, row sheet.Row, header string) string {
	t.Helper()
	log := sheet.NewLog()
	if err := log.Append(row); err != nil {
		t.Fatalf("append: %v", err)
	}
	return log.Value(0, header)
}

func TestComposeRows_Multiome(t *testing.T) {
	p := mustParse(t, validSubmission())
	rows := composeValid(t, p, nil)

	// two reactions, RNA then ATAC per reaction
	if len(rows) != 4 {
		t.Fatalf("row count = %d, want 4", len(rows))
	}

	rna := rows[0]
	wantRNA := map[string]string{
		"krienen_lab_identifier":              "251001_HMBA_cjPetra_Slab5_Tile2_pooled_RNA1",
		"seq_portal":                          "no",
		"experiment_start_date":               "251001",
		"mit_name":                            "cjPetra",
		"donor_name":                          "CJ23.56.001",
		"tissue_name":                         "CJ23.56.001.A1.05.02",
		"dissociated_cell_sample_name":        "251001_CJ23.56.001.A1.05.02.Multiome",
		"facs_population_plan":                "NeuN+",
		"cell_prep_type":                      "nuclei",
		"study":                               "HMBA_BasalGanglia",
		"enriched_cell_sample_container_name": "MPXM_251001_PS_KL",
		"enriched_cell_sample_name":           "MPXM_251001_PS_KL_1",
		"enriched_cell_sample_quantity_count": "5000",
		"barcoded_cell_sample_name":           "P0090_1",
		"port_well":                           "1",
		"library_method":                      "10xMultiome-RSeq",
		"cDNA_amplification_method":           "10xMultiome-RSeq",
		"cDNA_amplification_date":             "251002",
		"amplified_cdna_name":                 "APKLXR_251002_1_A",
		"cDNA_pcr_cycles":                     "12",
		"rna_amplification_pass_fail":         "Pass",
		"percent_cdna_longer_than_400bp":      "50",
		"cdna_amplified_quantity_ng":          "60",
		"cDNA_library_input_ng":               "15",
		"library_creation_date":               "251003",
		"library_prep_set":                    "LPKLXR_251003_1",
		"library_name":                        "LPKLXR_251003_1_A12",
		"tapestation_avg_size_bp":             "400",
		"library_num_cycles":                  "10",
		"lib_quantification_ng":               "105",
		"library_prep_pass_fail":              "Pass",
		"r1_index":                            "SI-TT-A12_i7",
		"r2_index":                            "SI-TT-A12_b(i5)",
	}
	for header, want := range wantRNA {
		if got := rowValue(t, rna, header); got != want {
			t.Fatalf("RNA %s = %q, want %q", header, got, want)
		}
	}
	if !rna["ATAC_index"].NA || !rna["tissue_name_old"].NA {
		t.Fatalf("RNA row should blank ATAC_index and tissue_name_old")
	}

	atac := rows[1]
	wantATAC := map[string]string{
		"krienen_lab_identifier":    "251001_HMBA_cjPetra_Slab5_Tile2_pooled_ATAC1",
		"barcoded_cell_sample_name": "P0090_1",
		"library_method":            "10xMultiome-ASeq",
		"library_creation_date":     "251004",
		"library_prep_set":          "LPKLXA_251004_1",
		"library_name":              "LPKLXA_251004_1_C04",
		"tapestation_avg_size_bp":   "500",
		"library_num_cycles":        "8",
		"lib_quantification_ng":     "40",
		"ATAC_index":                "SI-NA-C04",
	}
	for header, want := range wantATAC {
		if got := rowValue(t, atac, header); got != want {
			t.Fatalf("ATAC %s = %q, want %q", header, got, want)
		}
	}
	for _, header := range []string{
		"cDNA_amplification_method", "cDNA_amplification_date", "amplified_cdna_name",
		"cDNA_pcr_cycles", "rna_amplification_pass_fail", "percent_cdna_longer_than_400bp",
		"cdna_amplified_quantity_ng", "cDNA_library_input_ng", "r1_index", "r2_index",
	} {
		if !atac[header].NA {
			t.Fatalf("ATAC %s should be the not-applicable sentinel", header)
		}
	}

	// second reaction advances well, amp letter and identifier suffix
	second := rows[2]
	if got := rowValue(t, second, "krienen_lab_identifier"); got != "251001_HMBA_cjPetra_Slab5_Tile2_pooled_RNA2" {
		t.Fatalf("second identifier %q", got)
	}
	if got := rowValue(t, second, "barcoded_cell_sample_name"); got != "P0090_2" {
		t.Fatalf("second barcoded name %q", got)
	}
	if got := rowValue(t, second, "amplified_cdna_name"); got != "APKLXR_251002_1_B" {
		t.Fatalf("second amp name %q", got)
	}
	if got := rowValue(t, second, "library_name"); got != "LPKLXR_251003_1_B03" {
		t.Fatalf("second library name %q", got)
	}
}

func TestComposeRows_PrepCountsSeeded(t *testing.T) {
	p := mustParse(t, validSubmission())
	seed := map[PrepKey]int{
		{Type: "LPKLXR", Date: "251003", Index: "A12"}: 2,
	}
	rows := composeValid(t, p, seed)
	if got := rowValue(t, rows[0], "library_name"); got != "LPKLXR_251003_3_A12" {
		t.Fatalf("seeded library name %q", got)
	}
	if seed[PrepKey{Type: "LPKLXR", Date: "251003", Index: "A12"}] != 2 {
		t.Fatalf("seed map mutated: %v", seed)
	}
}

func TestComposeRows_DuplicateIndexWithinSubmission(t *testing.T) {
	sub := validSubmission()
	sub.RnaIndices = "12a, 12a"
	p := mustParse(t, sub)
	rows := composeValid(t, p, nil)
	if got := rowValue(t, rows[0], "library_name"); got != "LPKLXR_251003_1_A12" {
		t.Fatalf("first library name %q", got)
	}
	if got := rowValue(t, rows[2], "library_name"); got != "LPKLXR_251003_2_A12" {
		t.Fatalf("second library name %q", got)
	}
}

func TestComposeRows_Aim4(t *testing.T) {
	sub := validSubmission()
	sub.Project = ProjectAim4
	sub.Slab = "9, 10, 11"
	p := mustParse(t, sub)
	rows := composeValid(t, p, nil)

	if len(rows) != 2 {
		t.Fatalf("row count = %d, want 2 RNA-only rows", len(rows))
	}
	want := map[string]string{
		"krienen_lab_identifier":              "251001_HMBA_cjPetra_Slabs_9_10_11_Tile2_pooled_RNA1",
		"tissue_name":                         "CJ23.56.001.A1.09_10_11.02",
		"dissociated_cell_sample_name":        "251001_CJ23.56.001.A1.09_10_11.02.Rseq",
		"enriched_cell_sample_container_name": "MPTX_251001_PS_KL",
		"library_method":                      "10xV4",
		"amplified_cdna_name":                 "APKLTX_251002_1_A",
		"library_name":                        "LPKLTX_251003_1_A12",
	}
	for header, wantV := range want {
		if got := rowValue(t, rows[0], header); got != wantV {
			t.Fatalf("Aim4 %s = %q, want %q", header, got, wantV)
		}
	}
	if !rows[0]["ATAC_index"].NA {
		t.Fatalf("Aim4 RNA row should blank ATAC_index")
	}
}

func TestComposeRows_TooFewAssignments(t *testing.T) {
	p := mustParse(t, validSubmission())
	if _, err := ComposeRows(p, []WellAssignment{{90, 1}}, AmpCode{1, 'A'}, nil); err == nil {
		t.Fatalf("expected error for short assignment slice")
	}
}
