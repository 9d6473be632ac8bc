package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// SiteMapHTML writes an interactive scatter chart with one point per site,
// coloured by its label, to w.
func SiteMapHTML(decisions [][]int, title string, w io.Writer) error {
	if err := checkGrid(decisions); err != nil {
		return err
	}
	lo, hi := labelRange(decisions)
	width, height := len(decisions[0]), len(decisions)

	data := make([]opts.ScatterData, 0, width*height)
	for y, row := range decisions {
		for x, v := range row {
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, v}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("sites=%dx%d labels=%d..%d", width, height, lo, hi)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -1, Max: width, Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: height, Name: "y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("labels", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render site map: %w", err)
	}
	return nil
}
