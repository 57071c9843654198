package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lakmecaceres/DataLoggerWeb/internal/sheet"
)

// projectNaming covers the identifier pieces that vary by project: Aim4 runs
// RNA-seq only with its own prefixes, everything else is a multiome run.
type projectNaming struct {
	dissociatedSuffix string
	enrichedPrefix    string
	rnaSuffix         string
	rnaLibraryMethod  string
}

func namingFor(project string) projectNaming {
	if project == ProjectAim4 {
		return projectNaming{
			dissociatedSuffix: ".Rseq",
			enrichedPrefix:    "MPTX",
			rnaSuffix:         "TX",
			rnaLibraryMethod:  "10xV4",
		}
	}
	return projectNaming{
		dissociatedSuffix: ".Multiome",
		enrichedPrefix:    "MPXM",
		rnaSuffix:         "XR",
		rnaLibraryMethod:  "10xMultiome-RSeq",
	}
}

const atacSuffix = "XA"
const atacLibraryMethod = "10xMultiome-ASeq"

// AmpPrefix is the amplified cDNA name prefix for a parsed submission.
func (p *Parsed) AmpPrefix() string {
	return "AP" + p.Initials + namingFor(p.Project).rnaSuffix
}

// slabPart renders the identifier slab segment: Slab{N} (unpadded) for a
// single slab, Slabs_{n1_n2_...} for multi-slab submissions.
func slabPart(p *Parsed) string {
	if multiSlab(p.Project) && p.Slab.Count > 1 {
		unpadded := make([]string, 0, p.Slab.Count)
		for _, s := range strings.Split(p.Slab.CombinedLabel, "_") {
			if n, err := strconv.Atoi(s); err == nil {
				unpadded = append(unpadded, strconv.Itoa(n))
			} else {
				unpadded = append(unpadded, s)
			}
		}
		return "Slabs_" + strings.Join(unpadded, "_")
	}
	n, err := strconv.Atoi(p.Slab.Slab)
	if err != nil {
		return "Slab" + p.Slab.Slab
	}
	return fmt.Sprintf("Slab%d", n)
}

// tilePart renders the identifier tile segment: Tile{N} for numeric tiles,
// the raw token (e.g. "EC") otherwise.
func tilePart(tile string) string {
	if n, err := strconv.Atoi(tile); err == nil {
		return fmt.Sprintf("Tile%d", n)
	}
	return tile
}

// tissueSlabLabel is the slab piece of tissue_name: the combined padded list
// for multi-slab submissions, the single padded slab otherwise.
func tissueSlabLabel(p *Parsed) string {
	if multiSlab(p.Project) && p.Slab.CombinedLabel != "" {
		return p.Slab.CombinedLabel
	}
	return p.Slab.Slab
}

// ComposeRows builds one log row per (reaction, modality) pair from the
// parsed submission and the allocated assignments. It is a pure function of
// its inputs: prepCounts is copied before the per-submission duplicate
// counters advance, and nothing here touches storage.
func ComposeRows(p *Parsed, wells []WellAssignment, ampStart AmpCode, prepCounts map[PrepKey]int) ([]sheet.Row, error) {
	if len(wells) < p.RxnNumber {
		return nil, fmt.Errorf("compose: %d assignments for %d reactions", len(wells), p.RxnNumber)
	}
	naming := namingFor(p.Project)
	tissueName := fmt.Sprintf("%s.%s.%s.%s", p.DonorCode, p.TileLocation, tissueSlabLabel(p), p.Tile)
	container := fmt.Sprintf("%s_%s_%s_%s", naming.enrichedPrefix, p.Date, p.SortStatus, p.Initials)

	counts := make(map[PrepKey]int, len(prepCounts))
	for k, v := range prepCounts {
		counts[k] = v
	}
	ampCode := ampStart

	var rows []sheet.Row
	for x := 0; x < p.RxnNumber; x++ {
		chip, well := wells[x].Chip, wells[x].Well
		barcodedName := fmt.Sprintf("P%04d_%d", chip, well)
		identifierBase := fmt.Sprintf("%s_HMBA_%s_%s_%s_%s", p.Date, p.MitName, slabPart(p), tilePart(p.Tile), p.SortMethod)

		for _, modality := range p.Modalities {
			row := sheet.Row{
				"krienen_lab_identifier":              {Value: fmt.Sprintf("%s_%s%d", identifierBase, modality, x+1)},
				"seq_portal":                          {Value: "no"},
				"elab_link":                           {Value: p.ElabLink},
				"experiment_start_date":               {Value: p.Date},
				"mit_name":                            {Value: p.MitName},
				"donor_name":                          {Value: p.DonorCode},
				"tissue_name":                         {Value: tissueName},
				"tissue_name_old":                     sheet.NACell(),
				"dissociated_cell_sample_name":        {Value: p.Date + "_" + tissueName + naming.dissociatedSuffix},
				"facs_population_plan":                {Value: p.FacsPopulation},
				"cell_prep_type":                      {Value: "nuclei"},
				"study":                               {Value: p.Project},
				"enriched_cell_sample_container_name": {Value: container},
				"expc_cell_capture":                   {Value: p.ExpectedRecovery},
				"port_well":                           {Value: well},
				"enriched_cell_sample_name":           {Value: fmt.Sprintf("%s_%d", container, well)},
				"enriched_cell_sample_quantity_count": {Value: p.EnrichedCellCount()},
				"barcoded_cell_sample_name":           {Value: barcodedName},
				"library_prep_pass_fail":              {Value: "Pass"},
			}

			switch modality {
			case ModalityRNA:
				libraryType := "LP" + p.Initials + naming.rnaSuffix
				index := p.RnaIndices[x]
				key := PrepKey{Type: libraryType, Date: p.RnaPrepDate, Index: index}
				counts[key]++
				prepSet := fmt.Sprintf("%s_%s_%d", libraryType, p.RnaPrepDate, counts[key])

				cdnaQuantity := p.CdnaConc[x] * 40
				row["library_method"] = sheet.Cell{Value: naming.rnaLibraryMethod}
				row["cDNA_amplification_method"] = sheet.Cell{Value: naming.rnaLibraryMethod}
				row["cDNA_amplification_date"] = sheet.Cell{Value: p.CdnaAmpDate}
				row["amplified_cdna_name"] = sheet.Cell{Value: ampCode.Name(p.AmpPrefix(), p.CdnaAmpDate)}
				row["cDNA_pcr_cycles"] = sheet.Cell{Value: p.CdnaPcrCycles[x]}
				row["rna_amplification_pass_fail"] = sheet.Cell{Value: "Pass"}
				row["percent_cdna_longer_than_400bp"] = sheet.Cell{Value: p.PercentCdna[x]}
				row["cdna_amplified_quantity_ng"] = sheet.Cell{Value: cdnaQuantity}
				row["cDNA_library_input_ng"] = sheet.Cell{Value: cdnaQuantity * 0.25}
				row["library_creation_date"] = sheet.Cell{Value: p.RnaPrepDate}
				row["library_prep_set"] = sheet.Cell{Value: prepSet}
				row["library_name"] = sheet.Cell{Value: prepSet + "_" + index}
				row["tapestation_avg_size_bp"] = sheet.Cell{Value: p.RnaSizes[x]}
				row["library_num_cycles"] = sheet.Cell{Value: p.RnaCycles[x]}
				row["lib_quantification_ng"] = sheet.Cell{Value: p.RnaLibConc[x] * 35}
				row["r1_index"] = sheet.Cell{Value: fmt.Sprintf("SI-TT-%s_i7", index)}
				row["r2_index"] = sheet.Cell{Value: fmt.Sprintf("SI-TT-%s_b(i5)", index)}
				row["ATAC_index"] = sheet.NACell()
				ampCode = ampCode.Next()

			case ModalityATAC:
				libraryType := "LP" + p.Initials + atacSuffix
				index := p.AtacIndices[x]
				key := PrepKey{Type: libraryType, Date: p.AtacPrepDate, Index: index}
				counts[key]++
				prepSet := fmt.Sprintf("%s_%s_%d", libraryType, p.AtacPrepDate, counts[key])

				row["library_method"] = sheet.Cell{Value: atacLibraryMethod}
				row["cDNA_amplification_method"] = sheet.NACell()
				row["cDNA_amplification_date"] = sheet.NACell()
				row["amplified_cdna_name"] = sheet.NACell()
				row["cDNA_pcr_cycles"] = sheet.NACell()
				row["rna_amplification_pass_fail"] = sheet.NACell()
				row["percent_cdna_longer_than_400bp"] = sheet.NACell()
				row["cdna_amplified_quantity_ng"] = sheet.NACell()
				row["cDNA_library_input_ng"] = sheet.NACell()
				row["library_creation_date"] = sheet.Cell{Value: p.AtacPrepDate}
				row["library_prep_set"] = sheet.Cell{Value: prepSet}
				row["library_name"] = sheet.Cell{Value: prepSet + "_" + index}
				row["tapestation_avg_size_bp"] = sheet.Cell{Value: p.AtacSizes[x]}
				row["library_num_cycles"] = sheet.Cell{Value: p.AtacCycles[x]}
				row["lib_quantification_ng"] = sheet.Cell{Value: p.AtacLibConc[x] * 20}
				row["r1_index"] = sheet.NACell()
				row["r2_index"] = sheet.NACell()
				row["ATAC_index"] = sheet.Cell{Value: fmt.Sprintf("SI-NA-%s", index)}
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}
