package leaderboard

import (
	"fmt"
	"html"
	"strings"

	"mlgrader/internal/store"
)

const renderTimestampLayout = "02.01 15:04"

// Render produces the leaderboard page body: an intro paragraph, the shared
// stylesheet and a table of ranked rows. The output depends only on the
// inputs, so republishing the same standings rewrites the same page.
func Render(title string, rows []store.LeaderboardRow, style string) string {
	var b strings.Builder

	b.WriteString("<!-- wp:paragraph -->\n")
	fmt.Fprintf(&b, "<p>%s. Ranked by accuracy with attack; ties keep submission order.</p>\n", html.EscapeString(title))
	b.WriteString("<!-- /wp:paragraph -->\n")

	b.WriteString("<!-- wp:code -->\n")
	if style != "" {
		b.WriteString("<style>\n")
		b.WriteString(style)
		b.WriteString("\n</style>\n")
	}

	b.WriteString("<table class=\"leaderboard\">\n")
	b.WriteString("<thead><tr>")
	for _, h := range []string{"Rank", "Full name", "Student ID", "With attack", "Without attack", "Best solution date", "Solutions"} {
		b.WriteString("<th>" + h + "</th>")
	}
	b.WriteString("</tr></thead>\n<tbody>\n")

	for i, row := range rows {
		b.WriteString("<tr>")
		fmt.Fprintf(&b, "<td>%d</td>", i+1)
		fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(displayName(row)))
		fmt.Fprintf(&b, "<td>%d</td>", row.StudentNumber)
		fmt.Fprintf(&b, "<td>%.4f</td>", row.Attack)
		fmt.Fprintf(&b, "<td>%.4f</td>", row.Clean)
		fmt.Fprintf(&b, "<td>%s</td>", row.SubmittedAt.Format(renderTimestampLayout))
		fmt.Fprintf(&b, "<td>%d</td>", row.Count)
		b.WriteString("</tr>\n")
	}

	b.WriteString("</tbody>\n</table>\n")
	b.WriteString("<!-- /wp:code -->\n")
	return b.String()
}

func displayName(row store.LeaderboardRow) string {
	if row.FullName == "" {
		return fmt.Sprintf("Student %d", row.Identity)
	}
	return row.FullName
}
