package profiling

import (
	"github.com/montanaflynn/stats"

	"sheetsense/adapters/ingest/coercer"
	"sheetsense/domain/core"
	"sheetsense/domain/table"
)

// Config defines the profiling thresholds
type Config struct {
	// Majority ratio of non-null values that must parse for datetime typing
	DatetimeThreshold float64 `json:"datetime_threshold"`
	// Absolute distinct-value bound for categorical typing
	CategoricalMaxUnique int `json:"categorical_max_unique"`
	// Relative distinct-value bound for categorical typing
	CategoricalMaxRatio float64 `json:"categorical_max_ratio"`
	// How many sample values each profile keeps
	SampleValues int `json:"sample_values"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		DatetimeThreshold:    0.5,
		CategoricalMaxUnique: 20,
		CategoricalMaxRatio:  0.05,
		SampleValues:         5,
	}
}

// Profiler converts a cleaned grid into a canonical typed Dataset with one
// ColumnProfile per column. Profiling is deterministic: the same grid always
// yields an identical Dataset apart from its generated id and timestamp.
type Profiler struct {
	config  Config
	coercer *coercer.Coercer
}

// New creates a profiler sharing the deployment's coercion rules
func New(config Config, c *coercer.Coercer) *Profiler {
	return &Profiler{config: config, coercer: c}
}

// Profile builds the Dataset for one cleaned sheet
func (p *Profiler) Profile(sheet *table.CleanSheet, fileID core.FileID) *table.Dataset {
	rowCount := sheet.RowCount()
	profiles := make([]table.ColumnProfile, len(sheet.Columns))

	for col, name := range sheet.Columns {
		raw := make([]string, 0, rowCount)
		for _, row := range sheet.Cells {
			cell := ""
			if col < len(row) {
				cell = row[col]
			}
			raw = append(raw, cell)
		}
		profiles[col] = p.profileColumn(name, raw)
	}

	rows := make([][]table.Value, rowCount)
	for i, row := range sheet.Cells {
		typed := make([]table.Value, len(sheet.Columns))
		for col := range sheet.Columns {
			cell := ""
			if col < len(row) {
				cell = row[col]
			}
			typed[col] = p.coercer.Coerce(cell, profiles[col].InferredType)
		}
		rows[i] = typed
	}

	return &table.Dataset{
		ID:        core.DatasetID(core.NewID()),
		FileID:    fileID,
		SheetName: sheet.Name,
		Columns:   profiles,
		RowCount:  rowCount,
		Rows:      rows,
		CreatedAt: core.Now(),
	}
}

// profileColumn infers the type and computes statistics for one column.
// Inference order, strictest first: boolean, integer, float, datetime,
// categorical, string. Ties resolve toward the earlier type.
func (p *Profiler) profileColumn(name string, raw []string) table.ColumnProfile {
	profile := table.ColumnProfile{Name: name}

	var nonNull []string
	unique := map[string]bool{}
	for _, cell := range raw {
		if cell == "" || p.coercer.IsNullToken(cell) {
			profile.NullCount++
			continue
		}
		nonNull = append(nonNull, cell)
		unique[cell] = true
	}
	profile.UniqueCount = len(unique)

	limit := p.config.SampleValues
	for _, cell := range nonNull {
		if len(profile.SampleValues) >= limit {
			break
		}
		profile.SampleValues = append(profile.SampleValues, cell)
	}

	profile.InferredType = p.inferType(nonNull, unique, len(raw))
	p.computeStats(&profile, nonNull)
	return profile
}

func (p *Profiler) inferType(nonNull []string, unique map[string]bool, rowCount int) table.ColumnType {
	if len(nonNull) == 0 {
		return table.TypeString
	}

	boolCount, intCount, floatCount, dateCount := 0, 0, 0, 0
	for _, cell := range nonNull {
		if _, ok := p.coercer.TryBoolean(cell); ok {
			boolCount++
		}
		if _, ok := p.coercer.TryInteger(cell); ok {
			intCount++
		}
		if _, ok := p.coercer.TryFloat(cell); ok {
			floatCount++
		}
		if _, ok := p.coercer.TryDatetime(cell); ok {
			dateCount++
		}
	}

	total := len(nonNull)
	switch {
	case boolCount == total && len(unique) <= 2:
		return table.TypeBoolean
	case intCount == total:
		return table.TypeInteger
	case floatCount == total:
		return table.TypeFloat
	case float64(dateCount)/float64(total) >= p.config.DatetimeThreshold:
		return table.TypeDatetime
	}

	if len(unique) <= p.config.CategoricalMaxUnique ||
		float64(len(unique)) <= p.config.CategoricalMaxRatio*float64(rowCount) {
		return table.TypeCategorical
	}
	return table.TypeString
}

// computeStats fills min/max/mean for numeric columns and the time bounds
// for datetime columns. All other types keep nil statistics.
func (p *Profiler) computeStats(profile *table.ColumnProfile, nonNull []string) {
	switch {
	case profile.InferredType.IsNumeric():
		data := make([]float64, 0, len(nonNull))
		for _, cell := range nonNull {
			if f, ok := p.coercer.TryFloat(cell); ok {
				data = append(data, f)
			}
		}
		if len(data) == 0 {
			return
		}
		if min, err := stats.Min(data); err == nil {
			profile.Min = &min
		}
		if max, err := stats.Max(data); err == nil {
			profile.Max = &max
		}
		if mean, err := stats.Mean(data); err == nil {
			profile.Mean = &mean
		}

	case profile.InferredType == table.TypeDatetime:
		var haveBounds bool
		var minT, maxT core.Timestamp
		for _, cell := range nonNull {
			t, ok := p.coercer.TryDatetime(cell)
			if !ok {
				continue
			}
			ts := core.NewTimestamp(t)
			if !haveBounds {
				minT, maxT = ts, ts
				haveBounds = true
				continue
			}
			if ts.Before(minT) {
				minT = ts
			}
			if ts.After(maxT) {
				maxT = ts
			}
		}
		if haveBounds {
			profile.MinTime = &minT
			profile.MaxTime = &maxT
			minUnix := float64(minT.Time().Unix())
			maxUnix := float64(maxT.Time().Unix())
			mean := (minUnix + maxUnix) / 2
			profile.Min = &minUnix
			profile.Max = &maxUnix
			profile.Mean = &mean
		}
	}
}
