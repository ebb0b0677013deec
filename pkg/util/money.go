package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// currencyPattern matches currency symbols and thousands separators.
	currencyPattern = regexp.MustCompile(`[$,\s]`)
	// parenthesesPattern matches accounting-style negatives like (1234.56).
	parenthesesPattern = regexp.MustCompile(`^\((.*)\)$`)
	// multiSpacePattern matches multiple consecutive whitespace characters.
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// ParseMoney normalizes a monetary string from an uploaded spreadsheet into a
// float64. It accepts currency symbols, thousands separators, and
// accounting-style parentheses for negatives ("$1,234.56", "(500.00)").
func ParseMoney(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if m := parenthesesPattern.FindStringSubmatch(cleaned); m != nil {
		negative = true
		cleaned = m[1]
	}

	cleaned = currencyPattern.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return 0, fmt.Errorf("no digits in amount %q", raw)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if negative {
		value = -value
	}
	return value, nil
}

// CleanField collapses whitespace and trims a free-text spreadsheet field.
func CleanField(raw string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(raw, " "))
}
