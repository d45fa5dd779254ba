package plotpage

import (
	"fmt"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/0xmozak/perftool/internal/report"
)

const (
	chartWidth      = "100%"
	chartHeight     = "550px"
	scatterSymbol   = 6
	fitLineWidth    = 2
	fitLineDashType = "dashed"
)

// BenchChart builds the comparison chart for one benchmark report: a scatter
// series per label overlaid with its fitted least-squares line.
func BenchChart(rep *report.Report) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithXAxisOpts(opts.XAxis{Name: rep.Parameter, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: rep.Output, Type: "value"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	for _, series := range rep.Series {
		data := make([]opts.ScatterData, len(series.X))
		for i := range series.X {
			data[i] = opts.ScatterData{
				Value:      []any{series.X[i], series.Y[i]},
				SymbolSize: scatterSymbol,
			}
		}

		scatter.AddSeries(series.Label, data)
	}

	line := charts.NewLine()

	for _, series := range rep.Series {
		if len(series.Fitted) == 0 {
			continue
		}

		line.AddSeries(fmt.Sprintf("%s fit", series.Label), fitLineData(series),
			charts.WithLineStyleOpts(opts.LineStyle{Width: fitLineWidth, Type: fitLineDashType}),
		)
	}

	scatter.Overlap(line)

	return scatter
}

// fitLineData returns the fitted line as (x, fitted) pairs sorted by x, so
// the overlay draws left to right regardless of sampling order.
func fitLineData(series report.Series) []opts.LineData {
	order := make([]int, len(series.X))
	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(a, b int) bool {
		return series.X[order[a]] < series.X[order[b]]
	})

	data := make([]opts.LineData, len(order))
	for i, idx := range order {
		data[i] = opts.LineData{Value: []any{series.X[idx], series.Fitted[idx]}}
	}

	return data
}
