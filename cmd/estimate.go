package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/df07/go-multiquad-light/pkg/renderer"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/urfave/cli"
)

// Estimate direct irradiance at the scene receivers.
func EstimateLighting(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	heuristic, err := renderer.ParseHeuristic(ctx.String("heuristic"))
	if err != nil {
		return err
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := renderer.Estimate(runCtx, sc, renderer.EstimatorConfig{
		Workers:         ctx.Int("workers"),
		SamplesPerPoint: ctx.Int("spp"),
		BatchSize:       ctx.Int("batch"),
		Seed:            ctx.Int64("seed"),
		Heuristic:       heuristic,
	})
	if err != nil {
		return err
	}

	displayReceivers(result)
	displayWorkerStats(result.Stats)
	if ctx.Bool("metrics") {
		if err := displayMetrics(); err != nil {
			return err
		}
	}
	return nil
}

func displayReceivers(result *renderer.Result) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Receiver", "Point", "Normal", "Irradiance (RGB)", "Std. error"})
	for i, r := range result.Receivers {
		e := r.Stats.GetIrradiance()
		table.Append([]string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("(%.3g, %.3g, %.3g)", r.Receiver.Point.X, r.Receiver.Point.Y, r.Receiver.Point.Z),
			fmt.Sprintf("(%.3g, %.3g, %.3g)", r.Receiver.Normal.X, r.Receiver.Normal.Y, r.Receiver.Normal.Z),
			fmt.Sprintf("%.5f %.5f %.5f", e.X, e.Y, e.Z),
			fmt.Sprintf("%.5f", r.Stats.StdError()),
		})
	}
	table.Render()
	logger.Noticef("irradiance estimates\n%s", buf.String())
}

func displayWorkerStats(stats renderer.EstimateStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Tasks", "Samples", "Cache hits", "Cache misses"})
	for _, w := range stats.Workers {
		table.Append([]string{
			fmt.Sprintf("%d", w.ID),
			fmt.Sprintf("%d", w.Tasks),
			fmt.Sprintf("%d", w.Samples),
			fmt.Sprintf("%d", w.CacheHits),
			fmt.Sprintf("%d", w.CacheMisses),
		})
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d", stats.TotalSamples), "TOTAL", fmt.Sprintf("%s", stats.Duration)})
	table.Render()
	logger.Noticef("worker statistics (%d failed, %d occluded light samples)\n%s",
		stats.FailedLightSamples, stats.OccludedSamples, buf.String())
}

// Print the light's prometheus counters from the default registry.
func displayMetrics() error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", "Labels", "Value"})
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "multiquad_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			table.Append([]string{mf.GetName(), formatLabels(m.GetLabel()), formatValue(mf.GetType(), m)})
		}
	}
	table.Render()
	logger.Noticef("light metrics\n%s", buf.String())
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	labels := make([]string, 0, len(pairs))
	for _, p := range pairs {
		labels = append(labels, fmt.Sprintf("%s=%s", p.GetName(), p.GetValue()))
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}

func formatValue(kind dto.MetricType, m *dto.Metric) string {
	switch kind {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%.0f", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%.6fs", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "-"
	}
}
