// Package export assembles the downloadable pattern pack: the symbol chart
// as CSV, the per-color counts and bag totals, the machine-readable
// spec.json, a preview PNG, and the ZIP bundle that ties them together.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/patternforge/diamondgrid/internal/palette"
	"github.com/patternforge/diamondgrid/internal/pipeline"
	"github.com/patternforge/diamondgrid/internal/tiling"
)

// cellsPerBag is the drill count of one retail bag. Bag totals round up so a
// single leftover cell still gets a bag.
const cellsPerBag = 200

// canvas dimensions of the physical kit in centimeters.
const (
	canvasWidthCM  = 30.0
	canvasHeightCM = 40.0
)

// previewHeight is the pixel height of the bundled preview render.
const previewHeight = 1280

// Request carries everything the pack builder needs from a finished
// pipeline run.
type Request struct {
	JobID   string
	Palette *palette.Palette
	Result  *pipeline.Result
	Options pipeline.Options
	URLBase string
}

// Bags returns the number of bags needed for a cell count.
func Bags(count int) int {
	return (count + cellsPerBag - 1) / cellsPerBag
}

// CountsCSV renders the legend table: one row per palette color with its
// bag code, hex value, cell count, share and bag total.
func CountsCSV(counts pipeline.CountVector, pal *palette.Palette) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"symbol", "bag_code", "hex", "count", "percent", "bags"}); err != nil {
		return nil, err
	}

	percents := counts.Percentages()
	for i, e := range pal.Entries() {
		row := []string{
			strconv.Itoa(e.Symbol),
			e.BagCode(),
			e.Hex,
			strconv.Itoa(counts[i]),
			fmt.Sprintf("%.1f%%", percents[i]),
			strconv.Itoa(Bags(counts[i])),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// PatternCSV renders the full symbol grid as CSV, one row per grid row.
func PatternCSV(grid *pipeline.SymbolGrid) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	row := make([]string, grid.W)
	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			row[x] = strconv.Itoa(int(grid.At(x, y)))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

type specColor struct {
	Symbol int        `json:"symbol"`
	Name   string     `json:"name"`
	Hex    string     `json:"hex"`
	RGB    [3]uint8   `json:"rgb"`
	OKLab  [3]float64 `json:"oklab"`
}

type specCount struct {
	Symbol  int     `json:"symbol"`
	BagCode string  `json:"bag_code"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
	Bags    int     `json:"bags"`
}

type specDoc struct {
	JobID     string `json:"job_id"`
	Timestamp string `json:"timestamp"`
	CanvasCM  struct {
		W float64 `json:"w"`
		H float64 `json:"h"`
	} `json:"canvas_cm"`
	Grid struct {
		W          int `json:"w"`
		H          int `json:"h"`
		TotalCells int `json:"total_cells"`
	} `json:"grid"`
	Tile    *tiling.Layout `json:"tile"`
	Palette struct {
		ID     string      `json:"id"`
		Name   string      `json:"name"`
		Colors []specColor `json:"colors"`
	} `json:"palette"`
	Options pipeline.Options `json:"options"`
	Metrics pipeline.Metrics `json:"metrics"`
	Counts  []specCount      `json:"counts"`
	QRURL   string           `json:"qr_url,omitempty"`
}

// SpecJSON renders the machine-readable pattern description used by the
// assembly app and for reprints.
func SpecJSON(req Request) ([]byte, error) {
	grid := req.Result.Symbols

	layout, err := tiling.New(grid.W, grid.H)
	if err != nil {
		return nil, err
	}

	var doc specDoc
	doc.JobID = req.JobID
	doc.Timestamp = time.Now().UTC().Format(time.RFC3339)
	doc.CanvasCM.W = canvasWidthCM
	doc.CanvasCM.H = canvasHeightCM
	doc.Grid.W = grid.W
	doc.Grid.H = grid.H
	doc.Grid.TotalCells = grid.W * grid.H
	doc.Tile = layout
	doc.Palette.ID = req.Palette.ID
	doc.Palette.Name = req.Palette.Name
	doc.Options = req.Options
	doc.Metrics = req.Result.Metrics

	percents := req.Result.Counts.Percentages()
	for i, e := range req.Palette.Entries() {
		doc.Palette.Colors = append(doc.Palette.Colors, specColor{
			Symbol: e.Symbol,
			Name:   e.Name,
			Hex:    e.Hex,
			RGB:    [3]uint8{e.R, e.G, e.B},
			OKLab:  [3]float64{e.OKLab.L, e.OKLab.A, e.OKLab.B},
		})
		doc.Counts = append(doc.Counts, specCount{
			Symbol:  e.Symbol,
			BagCode: e.BagCode(),
			Count:   req.Result.Counts[i],
			Percent: roundTenth(percents[i]),
			Bags:    Bags(req.Result.Counts[i]),
		})
	}

	if req.URLBase != "" {
		doc.QRURL = req.URLBase + "/" + req.JobID
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Pack builds the final ZIP bundle in memory: preview.png, pattern.csv,
// counts.csv and spec.json.
func Pack(req Request) ([]byte, error) {
	preview, err := pipeline.PreviewPNG(req.Result.Symbols, req.Palette, previewHeight)
	if err != nil {
		return nil, fmt.Errorf("export: render preview: %w", err)
	}

	pattern, err := PatternCSV(req.Result.Symbols)
	if err != nil {
		return nil, fmt.Errorf("export: pattern csv: %w", err)
	}

	counts, err := CountsCSV(req.Result.Counts, req.Palette)
	if err != nil {
		return nil, fmt.Errorf("export: counts csv: %w", err)
	}

	spec, err := SpecJSON(req)
	if err != nil {
		return nil, fmt.Errorf("export: spec json: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := []struct {
		name string
		data []byte
	}{
		{"preview.png", preview},
		{"pattern.csv", pattern},
		{"counts.csv", counts},
		{"spec.json", spec},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, fmt.Errorf("export: zip entry %s: %w", f.name, err)
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, fmt.Errorf("export: zip entry %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
