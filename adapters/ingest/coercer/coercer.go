package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"sheetsense/domain/table"
)

// Coercer converts raw cell strings into typed values with deterministic,
// versioned rules. All parsing decisions for one deployment come from one
// Config, so re-running ingestion on the same grid yields identical values.
type Coercer struct {
	config Config
}

// Config defines the coercion rules
type Config struct {
	// Tokens normalized to the single null representation, case-insensitive
	NullTokens []string `json:"null_tokens"`
	// Date layouts tried in order; the first match wins
	DateFormats []string `json:"date_formats"`
	// DayFirst resolves ambiguous numeric dates (02/03/2024): true reads
	// day/month per the deployment locale, false reads month/day.
	DayFirst bool `json:"day_first"`
}

// DefaultConfig returns the rules used unless a deployment overrides them
func DefaultConfig() Config {
	return Config{
		NullTokens: []string{"", "na", "n/a", "null", "-", "#n/a", "#div/0!", "nan"},
		DateFormats: []string{
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
			"2006/01/02",
			"02-Jan-2006",
			"Jan 2, 2006",
		},
		DayFirst: false,
	}
}

// New creates a coercer with the given config
func New(config Config) *Coercer {
	return &Coercer{config: config}
}

// IsNullToken reports whether a raw cell is a null-like sentinel
func (c *Coercer) IsNullToken(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, tok := range c.config.NullTokens {
		if s == tok {
			return true
		}
	}
	return false
}

// TryInteger attempts to parse a raw cell as an integer. Thousands
// separators and surrounding whitespace are tolerated.
func (c *Coercer) TryInteger(raw string) (int64, bool) {
	cleaned := c.stripNumericDecorations(raw)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// TryFloat attempts to parse a raw cell as a float. Handles currency
// symbols, percent signs, thousands separators, and parenthesized negatives.
func (c *Coercer) TryFloat(raw string) (float64, bool) {
	cleaned := c.stripNumericDecorations(raw)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// TryBoolean attempts to parse a raw cell as a boolean token
func (c *Coercer) TryBoolean(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "t":
		return true, true
	case "false", "no", "n", "f":
		return false, true
	}
	return false, false
}

// TryDatetime attempts to parse a raw cell under the configured date
// patterns. Ambiguous day/month ordering follows the DayFirst locale and is
// therefore consistent within a column.
func (c *Coercer) TryDatetime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range c.config.DateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Slash or dash separated numeric dates need locale disambiguation
	if t, ok := c.parseAmbiguousDate(s); ok {
		return t, true
	}
	return time.Time{}, false
}

// parseAmbiguousDate handles dd/mm/yyyy vs mm/dd/yyyy per DayFirst
func (c *Coercer) parseAmbiguousDate(s string) (time.Time, bool) {
	sep := ""
	switch {
	case strings.Count(s, "/") == 2:
		sep = "/"
	case strings.Count(s, "-") == 2:
		sep = "-"
	default:
		return time.Time{}, false
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, false
	}
	a, err1 := strconv.Atoi(parts[0])
	b, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	day, month := a, b
	if !c.config.DayFirst {
		day, month = b, a
	}
	// An out-of-range month disambiguates regardless of locale
	if month > 12 && day <= 12 {
		day, month = month, day
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like Feb 30
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// Coerce converts a raw cell to the given column type, falling back to null
// when the cell does not parse. No value is silently dropped: unparseable
// cells under a typed column become null, everything else survives as-is.
func (c *Coercer) Coerce(raw string, target table.ColumnType) table.Value {
	if c.IsNullToken(raw) {
		return table.NullValue()
	}
	switch target {
	case table.TypeInteger:
		if n, ok := c.TryInteger(raw); ok {
			return table.NewIntegerValue(n)
		}
		if f, ok := c.TryFloat(raw); ok {
			return table.NewFloatValue(f)
		}
		return table.NullValue()
	case table.TypeFloat:
		if f, ok := c.TryFloat(raw); ok {
			return table.NewFloatValue(f)
		}
		return table.NullValue()
	case table.TypeBoolean:
		if b, ok := c.TryBoolean(raw); ok {
			return table.NewBooleanValue(b)
		}
		return table.NullValue()
	case table.TypeDatetime:
		if t, ok := c.TryDatetime(raw); ok {
			return table.NewDatetimeValue(t)
		}
		return table.NullValue()
	default:
		return table.NewStringValue(strings.TrimSpace(raw))
	}
}

// stripNumericDecorations removes currency symbols, percent signs,
// thousands separators and parentheses before numeric parsing
func (c *Coercer) stripNumericDecorations(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		negative = true
	}

	for _, symbol := range []string{"$", "€", "£", "¥", "%"} {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if negative {
		s = "-" + s
	}
	return s
}
