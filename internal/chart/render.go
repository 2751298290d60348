package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderBar writes a standalone HTML page with the bar chart.
func RenderBar(w io.Writer, s Spec) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: s.Title,
			Width:     "100%",
			Height:    "460px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    s.Title,
			Subtitle: s.Source,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: s.Series, Max: s.YMax}),
	)

	labels := make([]string, len(s.Bars))
	data := make([]opts.BarData, len(s.Bars))
	for i, b := range s.Bars {
		labels[i] = b.Label
		data[i] = opts.BarData{
			Name:      b.Text,
			Value:     b.Value,
			ItemStyle: &opts.ItemStyle{Color: b.Color},
		}
	}

	bar.SetXAxis(labels).AddSeries(s.Series, data,
		charts.WithLabelOpts(opts.Label{
			Show:      opts.Bool(true),
			Position:  "top",
			Formatter: "{c} %",
		}),
	)
	return bar.Render(w)
}
