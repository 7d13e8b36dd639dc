package experiment

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// writeReport renders the validation and training reward curves of every experiment to an
// html page. The x-axis is the training episode at which each validation ran.
func writeReport(path string, validationFrequency int, results []Result) error {
	return writeFile(path, func(w io.Writer) error {
		return renderReport(w, validationFrequency, results)
	})
}

func renderReport(w io.Writer, validationFrequency int, results []Result) error {
	numPoints := 0
	for _, res := range results {
		if len(res.ValidationAvgReward) > numPoints {
			numPoints = len(res.ValidationAvgReward)
		}
	}
	var episodes []string
	for i := 1; i <= numPoints; i++ {
		episodes = append(episodes, fmt.Sprintf("%d", i*validationFrequency))
	}

	validation := newRewardChart("Validation average reward", episodes)
	training := newRewardChart("Training average reward", episodes)
	for _, res := range results {
		validation.AddSeries(res.Name, lineData(res.ValidationAvgReward))
		training.AddSeries(res.Name, lineData(res.TrainingAvgReward))
	}

	page := components.NewPage()
	page.PageTitle = "cleanbot"
	page.AddCharts(
		validation,
		training,
	)
	return page.Render(w)
}

func newRewardChart(title string, episodes []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
	)
	return line.SetXAxis(episodes)
}

func lineData(values []float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		items = append(items, opts.LineData{Value: v})
	}
	return items
}
