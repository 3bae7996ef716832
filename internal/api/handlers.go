package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/patternforge/diamondgrid/internal/config"
	"github.com/patternforge/diamondgrid/internal/database"
	"github.com/patternforge/diamondgrid/internal/export"
	"github.com/patternforge/diamondgrid/internal/imageprocessing"
	"github.com/patternforge/diamondgrid/internal/logging"
	"github.com/patternforge/diamondgrid/internal/palette"
	"github.com/patternforge/diamondgrid/internal/pipeline"
	"github.com/patternforge/diamondgrid/internal/version"
)

// previewHeight is the pixel height of inline preview renders.
const previewHeight = 800

// Server wires the HTTP handlers to the job store and upload directory.
type Server struct {
	jobs      *database.JobService
	uploadDir string
}

// NewServer creates the API server. Uploads land under DATA_DIR/uploads.
func NewServer(db *gorm.DB) (*Server, error) {
	uploadDir := filepath.Join(config.Get("DATA_DIR", "/data"), "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Server{
		jobs:      database.NewJobService(db),
		uploadDir: uploadDir,
	}, nil
}

// HealthHandler reports service liveness
func (s *Server) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"version": version.Version,
	})
}

// PalettesHandler lists the builtin palettes and canvas presets so the
// frontend never hardcodes colors.
func (s *Server) PalettesHandler(c *gin.Context) {
	palettes := make([]gin.H, 0, len(palette.IDs()))
	for _, id := range palette.IDs() {
		p, _ := palette.Get(id)
		palettes = append(palettes, gin.H{
			"id":     p.ID,
			"name":   p.Name,
			"colors": p.Entries(),
		})
	}

	presets := gin.H{}
	for _, name := range GridPresetNames() {
		g, _ := GridPreset(name)
		presets[name] = g
	}

	c.JSON(http.StatusOK, gin.H{
		"palettes":     palettes,
		"grid_presets": presets,
	})
}

// PreviewHandler takes a multipart upload (image file plus a JSON payload
// field) and returns one rendered preview per requested style, with counts
// and quality metrics. The upload is stored under a new job id for the final
// endpoint.
func (s *Server) PreviewHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	var payload PreviewPayload
	raw := c.PostForm("payload")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload field is required"})
		return
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid payload: %v", err)})
		return
	}
	if err := binding.Validator.ValidateStruct(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid payload: %v", err)})
		return
	}

	img, format, err := imageprocessing.DecodeUpload(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grid, err := payload.ResolveGrid()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	styles, err := payload.ResolveStyles()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts, err := payload.Options.ToPipeline()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prepared, err := prepare(img, payload.RotateDeg, payload.Crop)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := uuid.New()
	uploadPath := filepath.Join(s.uploadDir, jobID.String()+"_input."+format)
	if err := os.WriteFile(uploadPath, data, 0644); err != nil {
		logging.ErrorWithComponent(logging.ComponentAPIPreview, "failed to store upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	if _, err := s.jobs.CreateJob(jobID, uploadPath, header.Filename, format, []byte(raw)); err != nil {
		logging.ErrorWithComponent(logging.ComponentAPIPreview, "failed to create job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
		return
	}

	resp := PreviewResponse{
		JobID:    jobID.String(),
		Grid:     grid,
		Previews: make(map[string]string, len(styles)),
		Counts:   make(map[string][]int, len(styles)),
		Percents: make(map[string][]float64, len(styles)),
		Metrics:  make(map[string]StyleMetrics, len(styles)),
	}

	for _, style := range styles {
		pal, _ := palette.Get(style)

		result, err := pipeline.Run(pipeline.Request{
			Image:   prepared,
			GridW:   grid.W,
			GridH:   grid.H,
			Palette: pal,
			Options: opts,
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		preview, err := pipeline.PreviewDataURL(result.Symbols, pal, previewHeight)
		if err != nil {
			logging.ErrorWithComponent(logging.ComponentAPIPreview, "failed to render preview",
				"style", style, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render preview"})
			return
		}

		resp.Previews[style] = preview
		resp.Counts[style] = result.Counts[:]
		resp.Percents[style] = roundedPercents(result.Percents)
		resp.Metrics[style] = result.Metrics
	}

	logging.InfoWithComponent(logging.ComponentAPIPreview, "preview generated",
		"job_id", jobID, "grid_w", grid.W, "grid_h", grid.H, "styles", len(styles))
	c.JSON(http.StatusOK, resp)
}

// FinalHandler regenerates the chosen style from the stored upload and
// streams the ZIP pack.
func (s *Server) FinalHandler(c *gin.Context) {
	var req FinalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	pal, ok := palette.Get(req.Style)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown style %q", req.Style)})
		return
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := s.jobs.GetJob(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		logging.ErrorWithComponent(logging.ComponentAPIFinal, "job lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "job lookup failed"})
		return
	}

	data, err := os.ReadFile(job.UploadPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload no longer available"})
		return
	}

	img, _, err := imageprocessing.DecodeUpload(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grid, err := req.ResolveGrid()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts, err := req.Options.ToPipeline()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prepared, err := prepare(img, req.RotateDeg, req.Crop)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := pipeline.Run(pipeline.Request{
		Image:   prepared,
		GridW:   grid.W,
		GridH:   grid.H,
		Palette: pal,
		Options: opts,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	pack, err := export.Pack(export.Request{
		JobID:   job.ID.String(),
		Palette: pal,
		Result:  result,
		Options: opts,
		URLBase: config.Get("PATTERN_URL_BASE", ""),
	})
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentAPIFinal, "pack build failed",
			"job_id", job.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build pattern pack"})
		return
	}

	logging.InfoWithComponent(logging.ComponentAPIFinal, "pack generated",
		"job_id", job.ID, "style", req.Style, "bytes", len(pack))

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="pattern_%s.zip"`, req.Style))
	c.Data(http.StatusOK, "application/zip", pack)
}

// prepare applies rotation and crop in source coordinates before the
// pipeline takes over.
func prepare(img image.Image, rotateDeg float64, crop imageprocessing.CropRect) (image.Image, error) {
	rotated := imageprocessing.Rotate(img, rotateDeg)
	return imageprocessing.Crop(rotated, crop)
}

func roundedPercents(p [palette.Size]float64) []float64 {
	out := make([]float64, palette.Size)
	for i, v := range p {
		out[i] = float64(int(v*10+0.5)) / 10
	}
	return out
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, pipeline.ErrConfig) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
