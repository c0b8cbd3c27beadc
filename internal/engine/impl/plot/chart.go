// Package plot renders reconstructed series as PNG charts.
package plot

import (
	"errors"
	"io"
	"math"
	"sort"
	"strings"

	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/engine/aggregator"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a chart would have no point at all.
var ErrNoData = errors.New("no data to plot")

const (
	width  = 1024
	height = 640
)

// flowColors gives one color per plotted flow, reinjections reuse them.
var flowColors = [core.MaxPlottedFlows]drawing.Color{
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0x00, G: 0x00, B: 0x00, A: 0xff},
}

var interfaceColors = map[core.Interface]drawing.Color{
	core.InterfaceWiFi:     flowColors[1],
	core.InterfaceCellular: flowColors[0],
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: 1.5}
}

// pointStyle renders points only, without a connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    3,
		DotColor:    col,
	}
}

type bounds struct {
	minX, maxX, minY, maxY float64
	empty                  bool
}

func newBounds() bounds {
	return bounds{minX: math.Inf(1), maxX: math.Inf(-1), minY: math.Inf(1), maxY: math.Inf(-1), empty: true}
}

func (b *bounds) add(x, y float64) {
	b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
	b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
	b.empty = false
}

// ranges returns axis ranges, widened when all points share a coordinate.
func (b bounds) ranges() (x, y *chart.ContinuousRange) {
	if b.maxX == b.minX {
		b.minX, b.maxX = b.minX-0.5, b.maxX+0.5
	}
	if b.maxY == b.minY {
		b.minY, b.maxY = b.minY-1, b.maxY+1
	}
	return &chart.ContinuousRange{Min: b.minX, Max: b.maxX}, &chart.ContinuousRange{Min: b.minY, Max: b.maxY}
}

func toSeries(name string, points []core.ReconciledPoint, style chart.Style, b *bounds) chart.ContinuousSeries {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.Time, float64(p.Value)
		b.add(xs[i], ys[i])
	}
	return chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: style}
}

func render(w io.Writer, title, yName string, series []chart.Series, b bounds) error {
	if b.empty {
		return ErrNoData
	}
	xr, yr := b.ranges()
	ch := chart.Chart{
		Title:      strings.ReplaceAll(title, "\n", " | "),
		TitleStyle: chart.Style{FontSize: 8},
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Time [s]", Range: xr},
		YAxis:      chart.YAxis{Name: yName, Range: yr},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// RenderSequence draws one line per flow and one point cloud per flow of
// first transmission of reinjected segments.
func RenderSequence(w io.Writer, s *core.Series) error {
	labels := aggregator.Labels()
	b := newBounds()
	var series []chart.Series
	for i, points := range s.Plotted() {
		if len(points) == 0 {
			continue
		}
		col := flowColors[i%core.MaxPlottedFlows]
		style := lineStyle(col)
		if i >= core.MaxPlottedFlows {
			style = pointStyle(col)
		}
		series = append(series, toSeries(labels[i], points, style, &b))
	}
	return render(w, s.Title, "Sequence number [Bytes]", series, b)
}

// RenderAcks draws the acknowledged values of every flow.
func RenderAcks(w io.Writer, s *core.Series) error {
	labels := aggregator.Labels()
	b := newBounds()
	var series []chart.Series
	for i, points := range s.Acks {
		if len(points) == 0 {
			continue
		}
		series = append(series, toSeries(labels[i], points, lineStyle(flowColors[i]), &b))
	}
	return render(w, s.Title, "Acknowledged [Bytes]", series, b)
}

// RenderTimeline draws one cumulative line per interface.
func RenderTimeline(w io.Writer, title string, timeline map[core.Interface][]core.ReconciledPoint) error {
	ifaces := make([]string, 0, len(timeline))
	for iface := range timeline {
		ifaces = append(ifaces, string(iface))
	}
	sort.Strings(ifaces)

	b := newBounds()
	var series []chart.Series
	for _, name := range ifaces {
		iface := core.Interface(name)
		col, ok := interfaceColors[iface]
		if !ok {
			col = flowColors[3]
		}
		if len(timeline[iface]) == 0 {
			continue
		}
		series = append(series, toSeries(name, timeline[iface], lineStyle(col), &b))
	}
	return render(w, title, "Sequence number [Bytes]", series, b)
}
