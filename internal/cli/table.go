package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tableside/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// RenderTable lays out rows under headers with aligned columns.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) {
				widths[i] = max(widths[i], lipgloss.Width(row[i]))
			}
		}
	}

	render := func(style lipgloss.Style, cells []string) string {
		parts := make([]string, len(headers))
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, render(TableHeaderStyle, headers))
	for _, row := range rows {
		lines = append(lines, render(lipgloss.NewStyle(), row))
	}
	return strings.Join(lines, "\n")
}

// MenuTable renders catalog items for `catalog list`.
func MenuTable(items []model.CatalogItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rank := "-"
		if item.PopularityRank > 0 {
			rank = fmt.Sprint(item.PopularityRank)
		}
		vector := ErrorStyle.Render(ErrorIcon)
		if item.HasEmbedding() {
			vector = SuccessStyle.Render(SuccessIcon)
		}
		var groups []string
		for _, group := range item.OptionGroups {
			name := group.Name
			if group.Required {
				name += "*"
			}
			groups = append(groups, name)
		}
		rows = append(rows, []string{
			item.ID,
			item.DisplayName,
			item.Category,
			fmt.Sprintf("$%.2f", item.Price),
			rank,
			strings.Join(groups, ", "),
			vector,
		})
	}
	return RenderTable([]string{"ID", "Name", "Category", "Price", "Rank", "Options", "Vector"}, rows)
}

// OrderSummary renders a finalized order for `orders last`.
func OrderSummary(order *model.FinalizedOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order:   %s\n", order.ID)
	fmt.Fprintf(&b, "Guest:   %s\n", order.GuestID)
	fmt.Fprintf(&b, "Session: %s\n", order.SessionID)
	fmt.Fprintf(&b, "Placed:  %s\n\n", order.CreatedAt.Local().Format("Mon Jan 2 15:04"))
	for _, line := range order.Items {
		fmt.Fprintf(&b, "  • %s\n", line.Describe())
	}
	return RenderBox("Last order", strings.TrimRight(b.String(), "\n"))
}
