package api

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/patternforge/diamondgrid/internal/imageprocessing"
	"github.com/patternforge/diamondgrid/internal/palette"
	"github.com/patternforge/diamondgrid/internal/pipeline"
)

func init() {
	// "palette" validates style fields against the builtin palette ids.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("palette", func(fl validator.FieldLevel) bool {
			_, ok := palette.Get(fl.Field().String())
			return ok
		})
	}
}

// GridSize is the pattern grid in cells. The bounds keep cell sizes
// printable on the 30x40cm canvas.
type GridSize struct {
	W int `json:"w" binding:"omitempty,min=60,max=150"`
	H int `json:"h" binding:"omitempty,min=80,max=200"`
}

// Canvas presets, all 3:4 to match the physical kit.
var gridPresets = map[string]GridSize{
	"small":  {W: 80, H: 106},
	"medium": {W: 96, H: 128},
	"large":  {W: 108, H: 144},
}

// GridPreset resolves a named canvas preset.
func GridPreset(name string) (GridSize, bool) {
	g, ok := gridPresets[name]
	return g, ok
}

// GridPresetNames returns the preset names for the palettes endpoint.
func GridPresetNames() []string {
	return []string{"small", "medium", "large"}
}

func (g GridSize) orDefault() GridSize {
	if g.W == 0 && g.H == 0 {
		return gridPresets["medium"]
	}
	return g
}

// ProcessingOptions is the wire form of the pipeline knobs. Zero values mean
// "use the default", so a partial options object behaves predictably.
type ProcessingOptions struct {
	Gamma           *float64 `json:"gamma,omitempty" binding:"omitempty,gt=0,lte=4"`
	AutoContrast    *bool    `json:"auto_contrast,omitempty"`
	CLAHEClip       *float64 `json:"clahe_clip,omitempty" binding:"omitempty,gte=0,lte=10"`
	Denoise         string   `json:"denoise,omitempty" binding:"omitempty,oneof=none bilateral nlm"`
	DenoiseStrength *float64 `json:"denoise_strength,omitempty" binding:"omitempty,gte=0,lte=3"`
	Dither          string   `json:"dither,omitempty" binding:"omitempty,oneof=none floyd-steinberg fs jarvis-judice-ninke jjn stucki atkinson bayer"`
	DitherStrength  *float64 `json:"dither_strength,omitempty" binding:"omitempty,gte=0,lte=2"`
	EdgeBoost       *float64 `json:"edge_boost,omitempty" binding:"omitempty,gte=0,lte=1"`
	BackgroundDesat *float64 `json:"background_desat,omitempty" binding:"omitempty,gte=0,lte=1"`
	SpeckleCleanup  *bool    `json:"speckle_cleanup,omitempty"`
}

// ToPipeline merges the wire options over the pipeline defaults.
func (o ProcessingOptions) ToPipeline() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	if o.Gamma != nil {
		opts.Gamma = *o.Gamma
	}
	if o.AutoContrast != nil {
		opts.AutoContrast = *o.AutoContrast
	}
	if o.CLAHEClip != nil {
		opts.CLAHEClip = *o.CLAHEClip
	}
	if o.Denoise != "" {
		opts.Denoise = pipeline.DenoiseMethod(o.Denoise)
	}
	if o.DenoiseStrength != nil {
		opts.DenoiseStrength = *o.DenoiseStrength
	}
	if o.Dither != "" {
		algo, err := pipeline.ParseAlgorithm(o.Dither)
		if err != nil {
			return opts, err
		}
		opts.Dither = algo
	}
	if o.DitherStrength != nil {
		opts.DitherStrength = *o.DitherStrength
	}
	if o.EdgeBoost != nil {
		opts.EdgeBoost = *o.EdgeBoost
	}
	if o.BackgroundDesat != nil {
		opts.BackgroundDesat = *o.BackgroundDesat
	}
	if o.SpeckleCleanup != nil {
		opts.SpeckleCleanup = *o.SpeckleCleanup
	}

	return opts, opts.Validate()
}

// PreviewPayload is the JSON part of the multipart preview request.
type PreviewPayload struct {
	Crop       imageprocessing.CropRect `json:"crop" binding:"required"`
	RotateDeg  float64                  `json:"rotate_deg,omitempty" binding:"omitempty,gte=-360,lte=360"`
	Grid       GridSize                 `json:"grid"`
	GridPreset string                   `json:"grid_preset,omitempty" binding:"omitempty,oneof=small medium large"`
	Styles     []string                 `json:"styles,omitempty"`
	Options    ProcessingOptions        `json:"options"`
}

// ResolveGrid applies the preset, explicit size or default, in that order.
func (p PreviewPayload) ResolveGrid() (GridSize, error) {
	if p.GridPreset != "" {
		g, ok := GridPreset(p.GridPreset)
		if !ok {
			return GridSize{}, fmt.Errorf("unknown grid preset %q", p.GridPreset)
		}
		return g, nil
	}
	return p.Grid.orDefault(), nil
}

// ResolveStyles defaults to all builtin palettes and rejects unknown ones.
func (p PreviewPayload) ResolveStyles() ([]string, error) {
	if len(p.Styles) == 0 {
		return palette.IDs(), nil
	}
	for _, s := range p.Styles {
		if _, ok := palette.Get(s); !ok {
			return nil, fmt.Errorf("unknown style %q", s)
		}
	}
	return p.Styles, nil
}

// StyleMetrics is the per-style quality block of a preview response.
type StyleMetrics = pipeline.Metrics

// PreviewResponse carries one rendered preview per requested style.
type PreviewResponse struct {
	JobID    string                  `json:"job_id"`
	Grid     GridSize                `json:"grid"`
	Previews map[string]string       `json:"previews"`
	Counts   map[string][]int        `json:"counts"`
	Percents map[string][]float64    `json:"percents"`
	Metrics  map[string]StyleMetrics `json:"metrics"`
}

// FinalRequest asks for the downloadable pack of a previously previewed job.
type FinalRequest struct {
	JobID      string                   `json:"job_id" binding:"required,uuid"`
	Style      string                   `json:"style" binding:"required,palette"`
	Crop       imageprocessing.CropRect `json:"crop" binding:"required"`
	RotateDeg  float64                  `json:"rotate_deg,omitempty" binding:"omitempty,gte=-360,lte=360"`
	Grid       GridSize                 `json:"grid"`
	GridPreset string                   `json:"grid_preset,omitempty" binding:"omitempty,oneof=small medium large"`
	Options    ProcessingOptions        `json:"options"`
}

// ResolveGrid applies the preset, explicit size or default, in that order.
func (r FinalRequest) ResolveGrid() (GridSize, error) {
	if r.GridPreset != "" {
		g, ok := GridPreset(r.GridPreset)
		if !ok {
			return GridSize{}, fmt.Errorf("unknown grid preset %q", r.GridPreset)
		}
		return g, nil
	}
	return r.Grid.orDefault(), nil
}
