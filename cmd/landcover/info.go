package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ironsheep/landcover-mcp/internal/raster"
)

var infoCmd = &cobra.Command{
	Use:   "info <raster>",
	Short: "Print size, georeferencing and band statistics of a raster file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := raster.Read(args[0])
		if err != nil {
			return eris.Wrap(err, "info")
		}
		return printInfo(os.Stdout, args[0], g)
	},
}

func printInfo(w io.Writer, path string, g *raster.Grid) error {
	gt := g.Transform()
	ext := g.Extent()
	crs := g.CRS()
	if crs == "" {
		crs = "(none)"
	}
	fmt.Fprintf(w, "File:    %s\n", path)
	fmt.Fprintf(w, "Size:    %d x %d (cols x rows), %d band(s), %s\n", g.Cols(), g.Rows(), g.NumBands(), g.Kind())
	fmt.Fprintf(w, "CRS:     %s\n", strings.SplitN(crs, "\n", 2)[0])
	fmt.Fprintf(w, "Origin:  (%g, %g)\n", gt.OriginX, gt.OriginY)
	fmt.Fprintf(w, "Cell:    %g x %g\n", gt.CellWidth, gt.CellHeight)
	fmt.Fprintf(w, "Extent:  %g, %g, %g, %g\n", ext.MinX, ext.MinY, ext.MaxX, ext.MaxY)
	if nd, ok := g.NoData(); ok {
		fmt.Fprintf(w, "NoData:  %g\n", nd)
	}

	stats, err := g.AllStats()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nBAND\tVALID\tMIN\tMAX\tMEAN\tSTDDEV")
	for _, st := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%g\t%g\t%g\t%g\n", st.Name, st.Valid, st.Min, st.Max, st.Mean, st.StdDev)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
