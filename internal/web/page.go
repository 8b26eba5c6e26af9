package web

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/stockload/internal/core"
	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:sans-serif;margin:2rem}
table{border-collapse:collapse}
th,td{border:1px solid #ccc;padding:.3rem .6rem;text-align:left}
td.num{text-align:right}`

// LoadsPage renders the load list with an upload form and a revert button
// per load.
func LoadsPage(loads []core.LoadSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Stock loads</title><style>%s</style></head>
<body>
<h1>Stock loads</h1>
<form method="post" action="/api/loads" enctype="multipart/form-data">
<input type="file" name="file" required> <button type="submit">Load</button>
</form>
`, pageStyle); err != nil {
			return err
		}

		if len(loads) == 0 {
			_, err := io.WriteString(w, "<p>No loads with stock yet.</p>\n</body></html>\n")
			return err
		}

		if _, err := io.WriteString(w, `<table>
<thead><tr><th>Load</th><th>File</th><th>Loaded at</th><th>Date</th><th>Facts</th><th></th></tr></thead>
<tbody>
`); err != nil {
			return err
		}

		for _, l := range loads {
			if err := loadRow(l).Render(ctx, w); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</tbody></table>\n</body></html>\n")
		return err
	})
}

func loadRow(l core.LoadSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td class="num">%d</td>`+
				`<td><form method="post" action="/api/loads/%d/revert"><button type="submit">Revert</button></form></td></tr>
`,
			l.LoadID,
			templ.EscapeString(l.SourceName),
			l.Timestamp.Format("2006-01-02 15:04:05"),
			l.LatestDate.Format("2006-01-02"),
			l.FactCount,
			l.LoadID,
		)
		return err
	})
}
