package export

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNothingToPlot is returned for charts without data.
var ErrNothingToPlot = errors.New("nothing to plot")

// Chart size, matching a 6x3.5 inch figure.
const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 3.5 * vg.Inch
)

// barPalette colors distribution bars in order.
var barPalette = []color.RGBA{
	{0x4F, 0x81, 0xBD, 0xFF}, {0xC0, 0x50, 0x4D, 0xFF}, {0x9B, 0xBB, 0x59, 0xFF},
	{0xFC, 0xD1, 0x16, 0xFF}, {0x80, 0x64, 0xA2, 0xFF}, {0x4B, 0xAC, 0xC6, 0xFF},
	{0xF7, 0x96, 0x46, 0xFF}, {0xC0, 0x00, 0x00, 0xFF}, {0x00, 0xB0, 0x50, 0xFF},
	{0x70, 0x30, 0xA0, 0xFF}, {0xFF, 0x66, 0x66, 0xFF}, {0xFF, 0xCC, 0x00, 0xFF},
	{0x00, 0xB0, 0xF0, 0xFF},
}

var (
	colorHistory    = color.RGBA{B: 0xFF, A: 0xFF}
	colorProjection = color.RGBA{G: 0x80, A: 0xFF}
	colorInterval   = color.RGBA{R: 0x43, G: 0x85, B: 0xBE, A: 0xFF}
	colorTarget     = color.RGBA{R: 0xFF, A: 0xFF}
)

// DistributionPNG draws one colored bar per category with the count printed
// under each bar.
func DistributionPNG(path string, dist model.Distribution) error {
	if len(dist.Bars) == 0 {
		return fmt.Errorf("distribution %s: %w", dist.Year, ErrNothingToPlot)
	}

	p := plot.New()
	p.Title.Text = "Distribución en " + dist.Year
	p.Y.Label.Text = "Cantidad"
	p.Y.Tick.Marker = countTicks{}
	p.Add(plotter.NewGrid())

	labels := make([]string, len(dist.Bars))
	values := make(plotter.XYs, len(dist.Bars))
	texts := make([]string, len(dist.Bars))
	top := dist.Max()
	for i, b := range dist.Bars {
		bars, err := plotter.NewBarChart(plotter.Values{b.Value}, vg.Points(24))
		if err != nil {
			return err
		}
		bars.XMin = float64(i)
		bars.Color = barPalette[i%len(barPalette)]
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)

		labels[i] = b.Category.Short()
		values[i] = plotter.XY{X: float64(i), Y: -top * 0.05}
		texts[i] = cli.FormatCount(b.Value)
	}

	valueLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: values, Labels: texts})
	if err != nil {
		return err
	}
	for i := range valueLabels.TextStyle {
		valueLabels.TextStyle[i].XAlign = draw.XCenter
		valueLabels.TextStyle[i].Font.Size = vg.Points(7)
	}
	p.Add(valueLabels)

	p.NominalX(labels...)
	p.Y.Min = -top * 0.1
	if top > 0 {
		p.Y.Max = top * 1.05
	}
	return p.Save(chartWidth, chartHeight, path)
}

// ForecastPNG draws the history of a category, the projected path with its
// interval edges, and a marker at the target month.
func ForecastPNG(path string, series model.Series, f model.Forecast) error {
	if series.Len() == 0 {
		return fmt.Errorf("forecast %s: %w", series.Category, ErrNothingToPlot)
	}

	p := plot.New()
	p.Title.Text = "Pronóstico para " + series.Category.Label()
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006\nJan"}
	p.Y.Tick.Marker = countTicks{}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	hist := make(plotter.XYs, series.Len())
	for i, pt := range series.Points {
		hist[i] = plotter.XY{X: float64(pt.Date.Unix()), Y: pt.Value}
	}
	histLine, err := plotter.NewLine(hist)
	if err != nil {
		return err
	}
	histLine.Color = colorHistory
	histLine.Width = vg.Points(1.5)
	p.Add(histLine)
	p.Legend.Add("Histórico", histLine)

	lo, hi := minMax(series.Values())
	targetX := float64(f.Target.Date().Unix())
	marker := "Real: " + cli.FormatCount(f.Value)

	if f.Kind == model.ForecastProjected && len(f.Path) > 0 {
		// The projection starts from the last observation so the lines join.
		last := series.Points[series.Len()-1]
		pts := plotter.XYs{{X: float64(last.Date.Unix()), Y: last.Value}}
		lower := plotter.XYs{{X: float64(last.Date.Unix()), Y: last.Value}}
		upper := plotter.XYs{{X: float64(last.Date.Unix()), Y: last.Value}}
		for _, fp := range f.Path {
			x := float64(fp.Date.Unix())
			pts = append(pts, plotter.XY{X: x, Y: fp.Value})
			lower = append(lower, plotter.XY{X: x, Y: fp.Lower})
			upper = append(upper, plotter.XY{X: x, Y: fp.Upper})
			lo, hi = math.Min(lo, fp.Lower), math.Max(hi, fp.Upper)
		}

		projLine, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		projLine.Color = colorProjection
		projLine.Width = vg.Points(1.5)
		p.Add(projLine)
		p.Legend.Add("Pronóstico", projLine)

		for _, band := range []plotter.XYs{lower, upper} {
			edge, err := plotter.NewLine(band)
			if err != nil {
				return err
			}
			edge.Color = colorInterval
			edge.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
			p.Add(edge)
		}
		targetX = float64(f.Path[len(f.Path)-1].Date.Unix())
		marker = cli.FormatMonth(f.Path[len(f.Path)-1].Date)
	}

	if f.Available() {
		vline, err := plotter.NewLine(plotter.XYs{{X: targetX, Y: lo}, {X: targetX, Y: hi}})
		if err != nil {
			return err
		}
		vline.Color = colorTarget
		vline.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(vline)

		label, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: targetX, Y: hi}},
			Labels: []string{marker},
		})
		if err != nil {
			return err
		}
		for i := range label.TextStyle {
			label.TextStyle[i].Color = colorTarget
			label.TextStyle[i].XAlign = draw.XRight
			label.TextStyle[i].Font.Size = vg.Points(7)
		}
		p.Add(label)
	}

	return p.Save(chartWidth, chartHeight, path)
}

// ErrorPNG writes a placeholder figure in place of a chart whose data could
// not be computed, so the export still carries one file per chart.
func ErrorPNG(path, title string, cause error) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.HideAxes()

	msg, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.55}, {X: 0.5, Y: 0.4}},
		Labels: []string{"Error al generar gráfico", cause.Error()},
	})
	if err != nil {
		return err
	}
	for i := range msg.TextStyle {
		msg.TextStyle[i].XAlign = draw.XCenter
		msg.TextStyle[i].Color = colorTarget
	}
	msg.TextStyle[1].Font.Size = vg.Points(7)
	p.Add(msg)

	return p.Save(chartWidth, chartHeight, path)
}

// countTicks labels the count axis with plain comma-separated integers.
type countTicks struct{}

func (countTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = cli.FormatCount(ticks[i].Value)
		}
	}
	return ticks
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// chartName returns a file-system friendly name for a category chart.
func chartName(c catalog.Category) string {
	return "pronostico-" + c.Short() + ".png"
}
