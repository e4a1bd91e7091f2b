package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/lights"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Sample emitted rays and compare how often each quad is chosen with its
// share of the light's power.
func SampleEmission(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	n := ctx.Int("samples")
	if n <= 0 {
		return errors.New("samples must be positive")
	}
	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}
	if err := sc.Preprocess(1); err != nil {
		return err
	}
	defer sc.Cleanup()

	sampler := core.NewRandomSampler(rand.New(rand.NewSource(ctx.Int64("seed"))))
	counts := make(map[int]int)
	backsides, failed := 0, 0
	for i := 0; i < n; i++ {
		sample, ok := sc.Light.SampleOutboundDirection(0, sampler)
		if !ok {
			failed++
			continue
		}
		counts[sample.Quad]++
		if sample.Normal != sc.Light.Geometry().Quad(sample.Quad).Normal {
			backsides++
		}
	}

	quads := make([]int, 0, len(counts))
	for q := range counts {
		quads = append(quads, q)
	}
	sort.Slice(quads, func(i, j int) bool {
		return counts[quads[i]] > counts[quads[j]]
	})
	if top := ctx.Int("top"); top > 0 && len(quads) > top {
		quads = quads[:top]
	}

	totalPower := sc.Light.Stats().TotalPower
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Quad", "Material", "Samples", "Sampled %", "Power %"})
	for _, q := range quads {
		quad := sc.Light.Geometry().Quad(q)
		mat := sc.Light.Material(quad.Material)
		table.Append([]string{
			fmt.Sprintf("%d", q),
			mat.Name,
			fmt.Sprintf("%d", counts[q]),
			fmt.Sprintf("%.3f", 100*float64(counts[q])/float64(n)),
			fmt.Sprintf("%.3f", 100*lights.QuadPower(quad, mat)/totalPower),
		})
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d", n-failed), "BACKSIDES", fmt.Sprintf("%d", backsides)})
	table.Render()
	logger.Noticef("emission samples (%d failed)\n%s", failed, buf.String())
	return nil
}
