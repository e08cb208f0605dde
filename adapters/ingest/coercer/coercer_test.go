package coercer

import (
	"testing"
	"time"

	"sheetsense/domain/table"
)

func TestTryInteger(t *testing.T) {
	c := New(DefaultConfig())

	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{" 42 ", 42, true},
		{"1,200", 1200, true},
		{"$1,200", 1200, true},
		{"(500)", -500, true},
		{"-17", -17, true},
		{"3.5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := c.TryInteger(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("TryInteger(%q) = (%d, %v), want (%d, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTryFloat_Decorations(t *testing.T) {
	c := New(DefaultConfig())

	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"3.14", 3.14, true},
		{"$1,200.50", 1200.50, true},
		{"€99.99", 99.99, true},
		{"15%", 15, true},
		{"(2.5)", -2.5, true},
		{"1e3", 1000, true},
		{"twelve", 0, false},
	}
	for _, tc := range cases {
		got, ok := c.TryFloat(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("TryFloat(%q) = (%v, %v), want (%v, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTryBoolean(t *testing.T) {
	c := New(DefaultConfig())

	truthy := []string{"true", "TRUE", "yes", "Y", "t"}
	for _, raw := range truthy {
		if v, ok := c.TryBoolean(raw); !ok || !v {
			t.Errorf("TryBoolean(%q) should be true", raw)
		}
	}
	falsy := []string{"false", "No", "n", "F"}
	for _, raw := range falsy {
		if v, ok := c.TryBoolean(raw); !ok || v {
			t.Errorf("TryBoolean(%q) should be false", raw)
		}
	}
	if _, ok := c.TryBoolean("maybe"); ok {
		t.Error("TryBoolean should reject non-boolean tokens")
	}
}

func TestIsNullToken(t *testing.T) {
	c := New(DefaultConfig())

	for _, raw := range []string{"", "  ", "NA", "n/a", "NULL", "-", "#N/A", "#DIV/0!", "NaN"} {
		if !c.IsNullToken(raw) {
			t.Errorf("IsNullToken(%q) should be true", raw)
		}
	}
	for _, raw := range []string{"0", "none at all", "n/b"} {
		if c.IsNullToken(raw) {
			t.Errorf("IsNullToken(%q) should be false", raw)
		}
	}
}

func TestTryDatetime_KnownLayouts(t *testing.T) {
	c := New(DefaultConfig())

	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024/03/15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15-Mar-2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"Mar 15, 2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := c.TryDatetime(tc.raw)
		if !ok {
			t.Errorf("TryDatetime(%q) failed to parse", tc.raw)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("TryDatetime(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestTryDatetime_AmbiguousLocale(t *testing.T) {
	monthFirst := New(DefaultConfig())

	dayFirstConfig := DefaultConfig()
	dayFirstConfig.DayFirst = true
	dayFirst := New(dayFirstConfig)

	// 02/03/2024 reads as Feb 3 month-first, Mar 2 day-first
	got, ok := monthFirst.TryDatetime("02/03/2024")
	if !ok || !got.Equal(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month-first 02/03/2024 = %v (ok=%v), want 2024-02-03", got, ok)
	}
	got, ok = dayFirst.TryDatetime("02/03/2024")
	if !ok || !got.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day-first 02/03/2024 = %v (ok=%v), want 2024-03-02", got, ok)
	}

	// An out-of-range month disambiguates regardless of locale
	got, ok = monthFirst.TryDatetime("25/12/2024")
	if !ok || !got.Equal(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("25/12/2024 = %v (ok=%v), want 2024-12-25", got, ok)
	}

	// Feb 30 must not roll over into March
	if _, ok := monthFirst.TryDatetime("02/30/2024"); ok {
		t.Error("02/30/2024 should not parse")
	}
}

func TestCoerce_FallbackToNull(t *testing.T) {
	c := New(DefaultConfig())

	v := c.Coerce("not a number", table.TypeFloat)
	if !v.IsNull {
		t.Error("unparseable cell under a float column should coerce to null")
	}
	v = c.Coerce("N/A", table.TypeInteger)
	if !v.IsNull {
		t.Error("null token should coerce to null before type parsing")
	}
	v = c.Coerce("3.5", table.TypeInteger)
	if v.IsNull || v.Type != table.ValueTypeFloat {
		t.Errorf("float cell under integer column should widen to float, got %+v", v)
	}
	v = c.Coerce("  hello  ", table.TypeString)
	if v.IsNull || v.AsString() != "hello" {
		t.Errorf("string cell should be trimmed, got %+v", v)
	}
}
