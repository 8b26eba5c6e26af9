package application

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/stockload/internal/core"
)

func printResult(w io.Writer, r *core.LoadResult) {
	if r.Conflicted() {
		printConflicts(w, r)
		printDuration(w, r)
		return
	}

	fmt.Fprintf(w, "Load %d: %d rows from %s in %d chunk(s)\n",
		r.LoadID, r.RowsPromoted, r.SourceName, r.Chunks)
	if r.NewDimensions.Total() > 0 {
		fmt.Fprintf(w, "New points of sale: %d, new products: %d\n",
			r.NewDimensions.PointsOfSale, r.NewDimensions.Products)
	}
	if r.RowsPromoted == 0 {
		fmt.Fprintln(w, "Warning: the file had no data rows")
	}
	printDuration(w, r)
}

func printConflicts(w io.Writer, r *core.LoadResult) {
	fmt.Fprintln(w, "Error: Found duplicated data, nothing was loaded")
	for _, c := range r.Conflicts {
		fmt.Fprintf(w, "Duplicate from %s on the %s (load %d, %d rows)\n",
			c.SourceName, c.Timestamp.Format("2006-01-02 15:04:05"), c.LoadID, c.Rows)
	}
	for _, d := range r.BatchDuplicates {
		fmt.Fprintf(w, "Repeated in file: %s / %s / %s (%d times)\n",
			d.PointOfSaleName, d.ProductName, d.Date.Format("2006-01-02"), d.Count)
	}
}

func printDuration(w io.Writer, r *core.LoadResult) {
	fmt.Fprintf(w, "Duration: %s\n", r.Duration.Round(time.Millisecond))
}

func printLoads(w io.Writer, loads []core.LoadSummary) {
	if len(loads) == 0 {
		fmt.Fprintln(w, "No stock data found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOAD\tFILE\tDATE\tROWS\tLOADED AT")
	for _, l := range loads {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			l.LoadID, l.SourceName, l.LatestDate.Format("2006-01-02"), l.FactCount,
			l.Timestamp.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

// printError prints the catalogue message. Malformed rows also print the
// offending record and its location.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", core.FormatUserError(err))

	var rowErr *core.MalformedRowError
	if errors.As(err, &rowErr) {
		fmt.Fprintf(w, "  %s\n", rowErr.Error())
		return
	}
	if !core.IsUserFacing(err) {
		fmt.Fprintf(w, "  %v\n", err)
	}
}
