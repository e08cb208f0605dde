package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetsense/domain/core"
	"sheetsense/domain/table"
)

// Config bounds what the reader accepts before any cell is touched
type Config struct {
	MaxFileSize       int64    `json:"max_file_size"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// DefaultConfig returns the upload limits used unless overridden
func DefaultConfig() Config {
	return Config{
		MaxFileSize:       50 << 20, // 50 MB
		AllowedExtensions: []string{".xlsx", ".xlsm", ".csv"},
	}
}

// Reader opens uploaded spreadsheet files and delivers one resolved cell
// grid per sheet. Formula cells come back as their last computed value,
// which is what excelize's GetRows returns by default.
type Reader struct {
	config Config
}

// NewReader creates a reader with the given limits
func NewReader(config Config) *Reader {
	return &Reader{config: config}
}

// ReadSheets reads every sheet of the file at path into raw grids
func (r *Reader) ReadSheets(path string) ([]table.RawSheet, table.FileMeta, error) {
	meta := table.FileMeta{Name: filepath.Base(path)}

	info, err := os.Stat(path)
	if err != nil {
		return nil, meta, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
	}
	meta.Size = info.Size()
	meta.Type = strings.ToLower(filepath.Ext(path))

	if r.config.MaxFileSize > 0 && meta.Size > r.config.MaxFileSize {
		return nil, meta, fmt.Errorf("%w: %d bytes exceeds limit of %d",
			core.ErrFileTooLarge, meta.Size, r.config.MaxFileSize)
	}
	if !r.extensionAllowed(meta.Type) {
		return nil, meta, fmt.Errorf("%w: %q", core.ErrUnsupportedType, meta.Type)
	}

	var sheets []table.RawSheet
	switch meta.Type {
	case ".csv":
		sheets, err = r.readCSV(path)
	default:
		sheets, err = r.readWorkbook(path)
	}
	if err != nil {
		return nil, meta, err
	}
	return sheets, meta, nil
}

func (r *Reader) extensionAllowed(ext string) bool {
	for _, allowed := range r.config.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// readWorkbook enumerates every sheet of an xlsx workbook. Merged-cell
// blocks carry one value at the top-left cell; that value is propagated to
// all cells in the merge so downstream cleaning sees a full block.
func (r *Reader) readWorkbook(path string) ([]table.RawSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
	}
	defer f.Close()

	var sheets []table.RawSheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", core.ErrUnreadableFile, name, err)
		}
		if err := r.fillMergedCells(f, name, rows); err != nil {
			return nil, err
		}
		sheets = append(sheets, table.RawSheet{Name: name, Cells: rows})
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", core.ErrUnreadableFile)
	}
	return sheets, nil
}

// fillMergedCells propagates each merge's top-left value across the block
func (r *Reader) fillMergedCells(f *excelize.File, sheet string, rows [][]string) error {
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return fmt.Errorf("%w: merge cells of %q: %v", core.ErrUnreadableFile, sheet, err)
	}
	for _, m := range merges {
		startCol, startRow, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			continue
		}
		endCol, endRow, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			continue
		}
		value := m.GetCellValue()
		for row := startRow; row <= endRow; row++ {
			for col := startCol; col <= endCol; col++ {
				ri, ci := row-1, col-1
				if ri >= len(rows) {
					continue
				}
				for ci >= len(rows[ri]) {
					rows[ri] = append(rows[ri], "")
				}
				rows[ri][ci] = value
			}
		}
	}
	return nil
}

// readCSV reads a CSV file as a single synthetic sheet
func (r *Reader) readCSV(path string) ([]table.RawSheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate ragged rows; cleaning pads them
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
	}

	return []table.RawSheet{{Name: "Sheet1", Cells: rows}}, nil
}
