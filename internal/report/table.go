// Package report renders spike history and current movers as aligned text
// tables for the CLI. Styling is applied after layout so ANSI escape
// sequences never skew the column widths; fatih/color drops the sequences
// entirely when stdout is not a terminal.
package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/earlyshift/earlyshift/internal/models"
)

const timeFormat = "2006-01-02 15:04"

var (
	headerStyle = color.New(color.FgCyan, color.Bold)
	growthStyle = color.New(color.FgGreen)
)

// FormatSpikesTable renders historical spike alerts, one row per spike.
// Growth-only spikes show "growth-only" in the source column and leave the
// video columns blank.
func FormatSpikesTable(spikes []*models.SpikeCandidate) string {
	if len(spikes) == 0 {
		return "No mechanic spikes detected in the selected window."
	}

	headers := []string{"Game", "Growth", "Current CCU", "Mechanic", "Source", "Published"}
	rows := [][]string{headers, dashesFor(headers)}
	for _, spike := range spikes {
		source := spike.VideoURL
		if source == "" {
			source = "growth-only"
		}
		published := ""
		if !spike.VideoPublishedAt.IsZero() {
			published = spike.VideoPublishedAt.UTC().Format(timeFormat)
		}
		rows = append(rows, []string{
			spike.DisplayName,
			fmt.Sprintf("%.1f%%", spike.GrowthPercent),
			formatCount(spike.CurrentCCU),
			spike.MechanicPhrase,
			source,
			published,
		})
	}

	return renderTable(rows, spikeStyle)
}

// FormatMoversTable renders the current growth ranking, one row per
// universe, highest growth first.
func FormatMoversTable(movers []models.GrowthEvent) string {
	if len(movers) == 0 {
		return "No universes with computable growth in the window."
	}

	headers := []string{"Game", "Growth", "Current CCU", "Week Ago", "Peak (7d)"}
	rows := [][]string{headers, dashesFor(headers)}
	for _, mover := range movers {
		rows = append(rows, []string{
			mover.DisplayName,
			fmt.Sprintf("%.1f%%", mover.GrowthPercent),
			formatCount(mover.CurrentCCU),
			formatCount(mover.WeekAgoCCU),
			formatCount(mover.PeakCCU),
		})
	}

	return renderTable(rows, spikeStyle)
}

// spikeStyle colors the header row and the growth column; the dash row and
// everything else stay plain.
func spikeStyle(row, col int, cell string) string {
	switch {
	case row == 0:
		return headerStyle.Sprint(cell)
	case row >= 2 && col == 1:
		return growthStyle.Sprint(cell)
	default:
		return cell
	}
}

// renderTable pads every cell to its column width and joins cells with a
// pipe separator. The style callback receives the already padded cell.
func renderTable(rows [][]string, style func(row, col int, cell string) string) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for rowIdx, row := range rows {
		cells := make([]string, len(row))
		for colIdx, cell := range row {
			cells[colIdx] = style(rowIdx, colIdx, pad(cell, widths[colIdx]))
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, " | "), " "))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func dashesFor(headers []string) []string {
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", utf8.RuneCountInString(h))
	}
	return dashes
}

func pad(cell string, width int) string {
	gap := width - utf8.RuneCountInString(cell)
	if gap <= 0 {
		return cell
	}
	return cell + strings.Repeat(" ", gap)
}

var countPrinter = message.NewPrinter(language.English)

func formatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}
