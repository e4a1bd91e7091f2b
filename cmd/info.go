package cmd

import (
	"bytes"
	"fmt"

	"github.com/df07/go-multiquad-light/pkg/lights"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Display statistics of the light's acceleration and selection trees.
func SceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}
	if err := sc.Preprocess(1); err != nil {
		return err
	}
	defer sc.Cleanup()

	logger.Noticef("scene %q\n%s", sc.Name, lightStatsTable(sc.Light.Stats()))
	return nil
}

func lightStatsTable(stats lights.LightStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Section", "Statistic", "Value"})
	table.Append([]string{"Light", "Quads", fmt.Sprintf("%d", stats.Quads)})
	table.Append([]string{"", "Emissive quads", fmt.Sprintf("%d", stats.EmissiveQuads)})
	table.Append([]string{"", "Total area", fmt.Sprintf("%.4f", stats.TotalArea)})
	table.Append([]string{"", "Total power", fmt.Sprintf("%.4f", stats.TotalPower)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Selection tree", "Nodes", fmt.Sprintf("%d", stats.SelectionNodes)})
	table.Append([]string{"", "Depth", fmt.Sprintf("%d", stats.SelectionDepth)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Intersection BVH", "Nodes", fmt.Sprintf("%d", stats.IntersectionStats.TotalNodes)})
	table.Append([]string{"", "Leaves", fmt.Sprintf("%d", stats.IntersectionStats.LeafNodes)})
	table.Append([]string{"", "Max depth", fmt.Sprintf("%d", stats.IntersectionStats.MaxDepth)})
	table.Append([]string{"", "Avg leaf depth", fmt.Sprintf("%.2f", stats.IntersectionStats.AvgDepth)})
	table.Render()
	return buf.String()
}
