package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/raphaelgruber/chatdb-go/internal/models"
	"github.com/spf13/cobra"
)

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Show the number of chats per month",
	Long: `Show how many chats were created in each calendar month (UTC).

Chats without a creation time are not counted. Months without chats are
not listed.

Examples:
  chatdb monthly
  chatdb monthly --db archive.db`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{storeAnnotation: storeReadOnly},
	RunE:        runMonthly,
}

func runMonthly(cmd *cobra.Command, args []string) error {
	counts, err := dbClient.MonthlyChatCounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("monthly report: %w", err)
	}

	renderMonthly(cmd.OutOrStdout(), counts, defaultTheme)
	return nil
}

func renderMonthly(w io.Writer, counts []models.MonthCount, theme Theme) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No chat data found in the database.")
		return
	}

	total := 0
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		Headers("Month", "Chats").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.headerStyle()
			}
			s := theme.cellStyle()
			if col == 1 {
				s = s.Align(lipgloss.Right)
			}
			return s
		})
	for _, c := range counts {
		t.Row(c.Month, strconv.Itoa(c.Count))
		total += c.Count
	}

	fmt.Fprintln(w, "Chats per month")
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, theme.hintStyle().Render(fmt.Sprintf("%d chats in %d months", total, len(counts))))
}
