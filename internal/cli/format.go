package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"optionguard/internal/models"
)

// FormatContract renders a contract label like "AAPL $190C Sep 19 2025".
func FormatContract(symbol string, optionType models.OptionType, strike float64, expiration time.Time) string {
	letter := "C"
	if optionType == models.OptionPut {
		letter = "P"
	}
	return fmt.Sprintf("%s $%s%s %s", symbol, FormatStrike(strike), letter, expiration.Format("Jan 2 2006"))
}

// FormatStrike renders a strike without trailing zeros: 190 -> "190", 192.5 -> "192.5".
func FormatStrike(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}

// FormatDTE renders days to expiration.
func FormatDTE(dte int) string {
	return fmt.Sprintf("%dd", dte)
}

// FormatIV renders a decimal implied volatility as a percentage.
func FormatIV(iv float64) string {
	return fmt.Sprintf("%.1f%%", iv*100)
}

// FormatGreeks renders per-share greeks on one line.
func FormatGreeks(g models.Greeks) string {
	return fmt.Sprintf("delta %.2f  gamma %.3f  theta %.2f  vega %.2f  iv %s",
		g.Delta, g.Gamma, g.Theta, g.Vega, FormatIV(g.IV))
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// ParseOptionType accepts the common spellings of an option side.
func ParseOptionType(s string) (models.OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C":
		return models.OptionCall, nil
	case "PUT", "P":
		return models.OptionPut, nil
	default:
		return "", fmt.Errorf("invalid option type %q, expected call or put", s)
	}
}

// ParseExpiration accepts YYYY-MM-DD and returns the date in UTC.
func ParseExpiration(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiration %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
