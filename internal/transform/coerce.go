package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
}

func coerceInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return int(i), nil
	}
	// Legacy exports sometimes render whole numbers as floats.
	if f, err := strconv.ParseFloat(raw, 64); err == nil && math.Mod(f, 1) == 0 {
		return int(f), nil
	}
	return 0, fmt.Errorf("unable to coerce %q to integer", raw)
}

func coerceFloat(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to coerce %q to float", raw)
	}
	return f, nil
}

func coerceDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

// optionalDate parses a date field the legacy export may never have
// captured. A lone ? marks an unknown date and maps to null, as does an
// empty field.
func optionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "?" {
		return nil, nil
	}
	ts, err := coerceDate(raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// normalizeOwner fixes the casing drift the legacy system accumulated for the
// LC owner.
func normalizeOwner(name string) string {
	switch name {
	case "lc", "Lc", "lC":
		return "LC"
	}
	return name
}

// normalizeMediaType expands the single-letter codes the legacy export uses
// for its two dominant media types.
func normalizeMediaType(name string) string {
	switch strings.ToUpper(name) {
	case "A":
		return "Book/Volume"
	case "M":
		return "Microfilm"
	}
	return name
}

// normalizeOrientation upper-cases the side marker and folds the legacy M
// and W markers onto the right side.
func normalizeOrientation(raw string) string {
	orientation := strings.ToUpper(strings.TrimSpace(raw))
	if orientation == "M" || orientation == "W" {
		return "R"
	}
	return orientation
}

// padBarcode restores the leading zeroes the legacy export strips from
// numeric barcode tokens.
func padBarcode(value string, width int) string {
	for len(value) < width {
		value = "0" + value
	}
	return value
}
