package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/colortrack/internal/db"
)

const defaultHistory = 500

func historyLimit(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 10000 {
		return n
	}
	return defaultHistory
}

// located drops sentinel records.
func located(recs []db.LocationRecord) []db.LocationRecord {
	out := recs[:0:0]
	for _, r := range recs {
		if r.X >= 0 && r.Y >= 0 {
			out = append(out, r)
		}
	}
	return out
}

// handlePositionsChart renders recent positions in frame coordinates with
// the latest tolerance band, using go-echarts.
func (ws *WebServer) handlePositionsChart(w http.ResponseWriter, r *http.Request) {
	recs, err := ws.src.History.RecentLocations(historyLimit(r))
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load positions: %v", err))
		return
	}
	pts := located(recs)

	width, height := 640, 480
	if len(recs) > 0 {
		last := recs[len(recs)-1]
		if last.Width > 0 && last.Height > 0 {
			width, height = last.Width, last.Height
		}
	}

	data := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tracked positions", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tracked positions", Subtitle: fmt.Sprintf("%d points, frame %dx%d", len(data), width, height)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: width, Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: height, Name: "y (px)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("position", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePositionsPlot renders x and y over time as a PNG, using gonum/plot.
func (ws *WebServer) handlePositionsPlot(w http.ResponseWriter, r *http.Request) {
	recs, err := ws.src.History.RecentLocations(historyLimit(r))
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load positions: %v", err))
		return
	}

	p, err := positionsPlot(located(recs))
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build plot: %v", err))
		return
	}
	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = wt.WriteTo(w)
}

func positionsPlot(recs []db.LocationRecord) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Tracked position"
	p.X.Label.Text = "seconds"
	p.Y.Label.Text = "pixels"

	if len(recs) == 0 {
		return p, nil
	}

	t0 := recs[0].RecordedAt
	xs := make(plotter.XYs, 0, len(recs))
	ys := make(plotter.XYs, 0, len(recs))
	for _, r := range recs {
		s := r.RecordedAt.Sub(t0).Seconds()
		xs = append(xs, plotter.XY{X: s, Y: float64(r.X)})
		ys = append(ys, plotter.XY{X: s, Y: float64(r.Y)})
	}

	xLine, err := plotter.NewLine(xs)
	if err != nil {
		return nil, err
	}
	xLine.Color = color.RGBA{R: 220, G: 60, B: 60, A: 255}
	xLine.Width = vg.Points(1)

	yLine, err := plotter.NewLine(ys)
	if err != nil {
		return nil, err
	}
	yLine.Color = color.RGBA{R: 60, G: 90, B: 220, A: 255}
	yLine.Width = vg.Points(1)

	p.Add(xLine, yLine, plotter.NewGrid())
	p.Legend.Add("x", xLine)
	p.Legend.Add("y", yLine)
	return p, nil
}
