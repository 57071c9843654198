// Package sheet implements the spreadsheet codec for the per-user data log.
// It exposes a header-name-indexed table abstraction so the rest of the
// service never touches workbook coordinates or style internals. Cells can
// carry a "not applicable" sentinel which is rendered as a solid black fill;
// downstream consumers treat that distinctly from a merely empty cell.
package sheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet every log workbook contains.
const SheetName = "HMBA"

// ContentType is the MIME type of a serialized log.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// naFillColor is the fill marking a cell as not applicable.
const naFillColor = "000000"

// Headers returns the canonical column order of a log workbook.
func Headers() []string {
	return []string{
		"krienen_lab_identifier", "seq_portal", "elab_link", "experiment_start_date",
		"mit_name", "donor_name", "tissue_name", "tissue_name_old",
		"dissociated_cell_sample_name", "facs_population_plan", "cell_prep_type",
		"study", "enriched_cell_sample_container_name", "expc_cell_capture",
		"port_well", "enriched_cell_sample_name", "enriched_cell_sample_quantity_count",
		"barcoded_cell_sample_name", "library_method", "cDNA_amplification_method",
		"cDNA_amplification_date", "amplified_cdna_name", "cDNA_pcr_cycles",
		"rna_amplification_pass_fail", "percent_cdna_longer_than_400bp",
		"cdna_amplified_quantity_ng", "cDNA_library_input_ng", "library_creation_date",
		"library_prep_set", "library_name", "tapestation_avg_size_bp",
		"library_num_cycles", "lib_quantification_ng", "library_prep_pass_fail",
		"r1_index", "r2_index", "ATAC_index",
	}
}

// Cell is one table value. NA marks the not-applicable sentinel; a nil Value
// with NA false is simply an empty cell.
type Cell struct {
	Value any
	NA    bool
}

// NA returns a not-applicable sentinel cell.
func NACell() Cell { return Cell{NA: true} }

// Row maps header names to cells. Headers absent from the map stay empty.
type Row map[string]Cell

// Table is an in-memory log: a fixed header row plus appended data rows.
type Table struct {
	headers []string
	index   map[string]int
	rows    [][]Cell
}

// NewLog returns an empty table with the canonical header set.
func NewLog() *Table {
	headers := Headers()
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[h] = i
	}
	return &Table{headers: headers, index: idx}
}

// Append adds one data row after existing content. Unknown headers are
// rejected so a composer typo cannot silently drop a value.
func (t *Table) Append(row Row) error {
	cells := make([]Cell, len(t.headers))
	for name, cell := range row {
		i, ok := t.index[name]
		if !ok {
			return fmt.Errorf("sheet: unknown header %q", name)
		}
		cells[i] = cell
	}
	t.rows = append(t.rows, cells)
	return nil
}

// NumRows reports the number of data rows (header excluded).
func (t *Table) NumRows() int { return len(t.rows) }

// Headers returns the table's header row.
func (t *Table) Headers() []string { return append([]string(nil), t.headers...) }

// Cell returns the cell at data row i for the named header.
func (t *Table) Cell(i int, header string) Cell {
	col, ok := t.index[header]
	if !ok || i < 0 || i >= len(t.rows) {
		return Cell{}
	}
	return t.rows[i][col]
}

// Value returns the cell value at data row i rendered as a string, empty for
// unset or not-applicable cells.
func (t *Table) Value(i int, header string) string {
	c := t.Cell(i, header)
	if c.Value == nil || c.NA {
		return ""
	}
	return fmt.Sprint(c.Value)
}

// Parse decodes workbook bytes into a table. Values come back as display
// strings; not-applicable cells are recovered from their fill style.
func Parse(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sheet: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("sheet: read rows: %w", err)
	}
	t := NewLog()
	if len(rows) == 0 {
		return t, nil
	}
	for rowIdx, raw := range rows[1:] {
		if isBlank(raw) {
			continue
		}
		cells := make([]Cell, len(t.headers))
		for col := range t.headers {
			var v string
			if col < len(raw) {
				v = raw[col]
			}
			cell := Cell{}
			if v != "" {
				cell.Value = v
			}
			if v == "" && hasNAFill(f, col+1, rowIdx+2) {
				cell.NA = true
			}
			cells[col] = cell
		}
		t.rows = append(t.rows, cells)
	}
	return t, nil
}

// Bytes serializes the table to workbook bytes: bold Arial 10 header, Arial
// 10 left-aligned data cells, black fill on NA cells.
func (t *Table) Bytes() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "left"},
	})
	if err != nil {
		return nil, err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "left"},
	})
	if err != nil {
		return nil, err
	}
	naStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "left"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{naFillColor}},
	})
	if err != nil {
		return nil, err
	}

	for col, name := range t.headers {
		axis, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, axis, name); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, axis, axis, headerStyle); err != nil {
			return nil, err
		}
	}

	for i, row := range t.rows {
		for col, cell := range row {
			axis, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if cell.Value != nil && !cell.NA {
				if err := f.SetCellValue(SheetName, axis, cell.Value); err != nil {
					return nil, err
				}
			}
			style := cellStyle
			if cell.NA {
				style = naStyle
			}
			if err := f.SetCellStyle(SheetName, axis, axis, style); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("sheet: serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func isBlank(raw []string) bool {
	for _, v := range raw {
		if v != "" {
			return false
		}
	}
	return true
}

func hasNAFill(f *excelize.File, col, row int) bool {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	styleID, err := f.GetCellStyle(SheetName, axis)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	for _, c := range style.Fill.Color {
		if len(c) >= 6 && c[len(c)-6:] == naFillColor {
			return true
		}
	}
	return false
}
