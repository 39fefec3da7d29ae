// Package format turns roster results into Discord embeds and plain strings.
package format

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money formats amount with thousands grouping, e.g. "$1,500,000".
func Money(amount int64) string {
	return printer.Sprintf("$%d", amount)
}

// Duration formats seconds as "{d}d {h}h {m}m".
func Duration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// Percentage formats value/total with one decimal. A zero total gives "0.0%".
func Percentage(value, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(value)/float64(total)*100)
}
