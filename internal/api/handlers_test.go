package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/patternforge/diamondgrid/internal/database"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())

	if err := database.Initialize(); err != nil {
		t.Fatalf("database init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	server, err := NewServer(database.GetDB())
	if err != nil {
		t.Fatal(err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/health", server.HealthHandler)
	r.GET("/api/palettes", server.PalettesHandler)
	r.POST("/api/preview", server.PreviewHandler)
	r.POST("/api/final", server.FinalHandler)
	return r
}

func testPhotoPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 128,
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func previewForm(t *testing.T, photo []byte, payload string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(photo); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("payload", payload); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["ok"] != true {
		t.Errorf("ok = %v", resp["ok"])
	}
}

func TestPalettesHandler(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/palettes", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp struct {
		Palettes []struct {
			ID     string           `json:"id"`
			Colors []map[string]any `json:"colors"`
		} `json:"palettes"`
		GridPresets map[string]GridSize `json:"grid_presets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Palettes) != 3 {
		t.Errorf("got %d palettes, want 3", len(resp.Palettes))
	}
	for _, p := range resp.Palettes {
		if len(p.Colors) != 7 {
			t.Errorf("palette %s has %d colors", p.ID, len(p.Colors))
		}
	}
	if g := resp.GridPresets["medium"]; g.W != 96 || g.H != 128 {
		t.Errorf("medium preset %+v", g)
	}
}

func TestPreviewHandlerValidation(t *testing.T) {
	r := setupRouter(t)
	photo := testPhotoPNG(t, 120, 160)

	tests := []struct {
		name    string
		payload string
	}{
		{"missing crop", `{}`},
		{"bad json", `{not json`},
		{"unknown style", `{"crop":{"x":0,"y":0,"w":120,"h":160},"styles":["neon"]}`},
		{"grid too small", `{"crop":{"x":0,"y":0,"w":120,"h":160},"grid":{"w":10,"h":10}}`},
		{"crop outside image", `{"crop":{"x":100,"y":0,"w":120,"h":160}}`},
		{"bad dither", `{"crop":{"x":0,"y":0,"w":120,"h":160},"options":{"dither":"riemersma"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ctype := previewForm(t, photo, tt.payload)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/preview", body)
			req.Header.Set("Content-Type", ctype)
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", w.Code)
			}
		})
	}
}

func TestPreviewAndFinalFlow(t *testing.T) {
	r := setupRouter(t)
	photo := testPhotoPNG(t, 120, 160)

	payload := `{"crop":{"x":0,"y":0,"w":120,"h":160},"grid":{"w":60,"h":80},"styles":["original"]}`
	body, ctype := previewForm(t, photo, payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/preview", body)
	req.Header.Set("Content-Type", ctype)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("preview status %d: %s", w.Code, w.Body.String())
	}

	var preview PreviewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &preview); err != nil {
		t.Fatal(err)
	}
	if preview.JobID == "" {
		t.Fatal("no job id")
	}
	if len(preview.Previews["original"]) == 0 {
		t.Error("missing preview data URL")
	}

	counts := preview.Counts["original"]
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != 60*80 {
		t.Errorf("counts sum to %d, want %d", total, 60*80)
	}

	finalBody, _ := json.Marshal(map[string]any{
		"job_id": preview.JobID,
		"style":  "original",
		"crop":   map[string]int{"x": 0, "y": 0, "w": 120, "h": 160},
		"grid":   map[string]int{"w": 60, "h": 80},
	})

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/final", bytes.NewReader(finalBody))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("final status %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("content type %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("empty zip response")
	}
}

func TestFinalHandlerUnknownJob(t *testing.T) {
	r := setupRouter(t)

	body, _ := json.Marshal(map[string]any{
		"job_id": "2ec84a9b-8f40-4c8b-9f3e-000000000000",
		"style":  "warm",
		"crop":   map[string]int{"x": 0, "y": 0, "w": 10, "h": 10},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/final", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", w.Code)
	}
}

func TestGridResolution(t *testing.T) {
	p := PreviewPayload{GridPreset: "large"}
	g, err := p.ResolveGrid()
	if err != nil || g.W != 108 || g.H != 144 {
		t.Errorf("large preset resolved to %+v, err %v", g, err)
	}

	p = PreviewPayload{}
	g, err = p.ResolveGrid()
	if err != nil || g.W != 96 || g.H != 128 {
		t.Errorf("default resolved to %+v, err %v", g, err)
	}

	p = PreviewPayload{Grid: GridSize{W: 70, H: 90}}
	g, err = p.ResolveGrid()
	if err != nil || g.W != 70 || g.H != 90 {
		t.Errorf("explicit grid resolved to %+v, err %v", g, err)
	}
}

func TestProcessingOptionsMerge(t *testing.T) {
	gamma := 1.4
	speckle := true

	opts, err := ProcessingOptions{
		Gamma:          &gamma,
		Dither:         "bayer",
		SpeckleCleanup: &speckle,
	}.ToPipeline()
	if err != nil {
		t.Fatal(err)
	}

	if opts.Gamma != 1.4 {
		t.Errorf("gamma %v", opts.Gamma)
	}
	if opts.Dither.String() != "bayer" {
		t.Errorf("dither %v", opts.Dither)
	}
	if !opts.SpeckleCleanup {
		t.Error("speckle cleanup not applied")
	}
	// Untouched knobs keep defaults.
	if opts.EdgeBoost != 0.3 {
		t.Errorf("edge boost %v", opts.EdgeBoost)
	}

	if _, err := (ProcessingOptions{Dither: "riemersma"}).ToPipeline(); err == nil {
		t.Error("unknown dither accepted")
	}
}
