package cleaner

import (
	"fmt"
	"strings"

	"sheetsense/adapters/ingest/coercer"
	"sheetsense/domain/core"
	"sheetsense/domain/table"
)

// Config defines the cleaning thresholds
type Config struct {
	// How many leading rows are scanned for a header row
	HeaderScanRows int `json:"header_scan_rows"`
	// Minimum non-blank cell ratio for a row to qualify as a header
	HeaderFillRatio float64 `json:"header_fill_ratio"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		HeaderScanRows:  10,
		HeaderFillRatio: 0.5,
	}
}

// Cleaner turns a raw sheet grid into a rectangular CleanSheet with an
// identified header row and normalized column names.
type Cleaner struct {
	config  Config
	coercer *coercer.Coercer
}

// New creates a cleaner sharing the deployment's coercion rules
func New(config Config, c *coercer.Coercer) *Cleaner {
	return &Cleaner{config: config, coercer: c}
}

// Clean runs the full pipeline on one sheet: merged-cell fill, null
// normalization, empty row/column pruning, header detection, and column name
// normalization. A sheet that reduces to zero rows or columns yields
// core.ErrEmptySheet.
func (c *Cleaner) Clean(raw table.RawSheet) (*table.CleanSheet, error) {
	grid := rectangularize(raw.Cells)

	// Null sentinels collapse to "" before pruning so sentinel-only rows and
	// columns are recognized as empty.
	for i := range grid {
		for j := range grid[i] {
			if c.coercer.IsNullToken(grid[i][j]) {
				grid[i][j] = ""
			} else {
				grid[i][j] = strings.TrimSpace(grid[i][j])
			}
		}
	}

	grid = c.pruneEmpty(grid)
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, core.NewEmptySheetError(raw.Name)
	}

	// Only rows are pruned past this point. Dropping a column here would
	// desync the data grid from the header row: a column whose header is
	// filled but whose cells are all blank stays, as an all-null column.
	headerIdx, headers := c.detectHeader(grid)
	data := pruneEmptyRows(grid[headerIdx+1:])
	if len(data) == 0 {
		return nil, core.NewEmptySheetError(raw.Name)
	}

	return &table.CleanSheet{
		Name:    raw.Name,
		Columns: normalizeNames(headers),
		Cells:   data,
	}, nil
}

// pruneEmpty drops rows and columns that are entirely blank. Column survival
// is decided on the original grid before any row is removed, so dropping a
// column never shifts which rows count as empty.
func (c *Cleaner) pruneEmpty(grid [][]string) [][]string {
	if len(grid) == 0 {
		return grid
	}

	width := len(grid[0])
	keepCol := make([]bool, width)
	keepRow := make([]bool, len(grid))
	for i, row := range grid {
		for j, cell := range row {
			if cell != "" {
				keepRow[i] = true
				keepCol[j] = true
			}
		}
	}

	var out [][]string
	for i, row := range grid {
		if !keepRow[i] {
			continue
		}
		kept := make([]string, 0, width)
		for j, cell := range row {
			if keepCol[j] {
				kept = append(kept, cell)
			}
		}
		out = append(out, kept)
	}
	return out
}

// pruneEmptyRows drops rows that are entirely blank, leaving widths alone
func pruneEmptyRows(grid [][]string) [][]string {
	var out [][]string
	for _, row := range grid {
		for _, cell := range row {
			if cell != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// detectHeader scans the first HeaderScanRows rows for the first row whose
// fill ratio clears the threshold and whose cells are not all numeric-looking.
// When no row qualifies, row 0 is used and synthetic names take over during
// normalization.
func (c *Cleaner) detectHeader(grid [][]string) (int, []string) {
	limit := c.config.HeaderScanRows
	if limit > len(grid) {
		limit = len(grid)
	}

	for i := 0; i < limit; i++ {
		row := grid[i]
		filled := 0
		numericLooking := 0
		for _, cell := range row {
			if cell == "" {
				continue
			}
			filled++
			if _, ok := c.coercer.TryFloat(cell); ok {
				numericLooking++
			}
		}
		if filled == 0 {
			continue
		}
		fillRatio := float64(filled) / float64(len(row))
		if fillRatio >= c.config.HeaderFillRatio && numericLooking < filled {
			return i, row
		}
	}

	return 0, grid[0]
}

// normalizeNames replaces blank or whitespace-only headers with column_N
// (1-based position) and disambiguates duplicates with _2, _3, ... suffixes
// in first-seen order. The result is injective: no two columns share a name.
func normalizeNames(headers []string) []string {
	out := make([]string, len(headers))
	seen := map[string]int{}

	for i, h := range headers {
		name := strings.TrimSpace(h)
		name = strings.ReplaceAll(name, "\n", " ")
		name = strings.ReplaceAll(name, "\r", " ")
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}

		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			candidate := fmt.Sprintf("%s_%d", name, n+1)
			// The suffixed name may itself collide with a later original
			for {
				if _, taken := seen[candidate]; !taken {
					break
				}
				seen[name]++
				candidate = fmt.Sprintf("%s_%d", name, seen[name])
			}
			seen[candidate] = 1
			out[i] = candidate
			continue
		}
		seen[name] = 1
		out[i] = name
	}
	return out
}

// rectangularize pads ragged rows to the widest row. Merged-cell blocks
// arrive with the value only in the top-left cell; the value is propagated
// across the merge horizontally when the reader marks it, and otherwise the
// remaining cells stay blank (documented policy: top-left value wins, blanks
// elsewhere are treated as missing).
func rectangularize(cells [][]string) [][]string {
	width := 0
	for _, row := range cells {
		if len(row) > width {
			width = len(row)
		}
	}
	out := make([][]string, len(cells))
	for i, row := range cells {
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}
