package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/couchcryptid/sheet-ladder-etl/internal/adapter/arcgis"
	"github.com/couchcryptid/sheet-ladder-etl/internal/pipeline"
)

func printSummary(w io.Writer, sum pipeline.Summary) {
	fmt.Fprintf(w, "Run %s\n", sum.RunID)
	fmt.Fprintf(w, "  Original table:  %d rows\n", sum.RowsLoaded)
	if sum.RowsGeocoded > 0 {
		fmt.Fprintf(w, "  Geocoded:        %d rows\n", sum.RowsGeocoded)
	}
	fmt.Fprintf(w, "  Expanded table:  %d rows\n", sum.RowsExpanded)
	fmt.Fprintf(w, "  Features:        %d (%d skipped without coordinates)\n", sum.Features, sum.Skipped)
	if sum.DryRun {
		fmt.Fprintln(w, "  Dry run: nothing uploaded")
		return
	}
	u := sum.Upload
	fmt.Fprintf(w, "  Uploaded:        %d total, %d succeeded, %d failed (%.1f%% success) in %d batches\n",
		u.Total, u.Succeeded, u.Failed, u.SuccessRate(), u.Batches)
}

func printFields(w io.Writer, info arcgis.LayerInfo) error {
	fmt.Fprintf(w, "LAYER: %s\n", info.Name)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tALIAS")
	for _, f := range info.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Type, f.Alias)
	}
	return tw.Flush()
}
