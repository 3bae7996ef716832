package pipeline

import (
	"errors"
	"fmt"
)

// ErrConfig marks configuration problems that are rejected before any pixel
// processing starts. Callers can match it with errors.Is and retry with a
// corrected request; nothing is ever partially applied.
var ErrConfig = errors.New("invalid configuration")

// DenoiseMethod selects the noise-reduction filter.
type DenoiseMethod string

const (
	DenoiseNone      DenoiseMethod = "none"
	DenoiseBilateral DenoiseMethod = "bilateral"
	DenoiseNLM       DenoiseMethod = "nlm"
)

// maxEdgeBoost is the documented safe range for the unsharp mask. Larger
// values overshoot and clip on hard edges.
const maxEdgeBoost = 0.5

// Options are the recognized processing knobs, applied in the fixed stage
// order documented on Preprocess. Every stage is an identity at its zero /
// default value.
type Options struct {
	Gamma           float64       `json:"gamma"`
	AutoContrast    bool          `json:"auto_contrast"`
	CLAHEClip       float64       `json:"clahe_clip"`
	Denoise         DenoiseMethod `json:"denoise"`
	DenoiseStrength float64       `json:"denoise_strength"`
	Dither          Algorithm     `json:"dither"`
	DitherStrength  float64       `json:"dither_strength"`
	EdgeBoost       float64       `json:"edge_boost"`
	BackgroundDesat float64       `json:"background_desat"`
	SpeckleCleanup  bool          `json:"speckle_cleanup"`
}

// DefaultOptions mirrors the defaults of the public API.
func DefaultOptions() Options {
	return Options{
		Gamma:           1.0,
		AutoContrast:    true,
		CLAHEClip:       2.0,
		Denoise:         DenoiseBilateral,
		DenoiseStrength: 1.0,
		Dither:          FloydSteinberg,
		DitherStrength:  1.0,
		EdgeBoost:       0.3,
		BackgroundDesat: 0.15,
		SpeckleCleanup:  false,
	}
}

// Validate rejects malformed options before processing begins.
// DitherStrength is deliberately not capped: values above 1 amplify the
// diffusion noise, which is a documented tuning knob.
func (o Options) Validate() error {
	if o.Gamma <= 0 {
		return fmt.Errorf("%w: gamma must be positive, got %g", ErrConfig, o.Gamma)
	}
	switch o.Denoise {
	case DenoiseNone, DenoiseBilateral, DenoiseNLM:
	default:
		return fmt.Errorf("%w: unknown denoise method %q", ErrConfig, o.Denoise)
	}
	if o.DenoiseStrength < 0 {
		return fmt.Errorf("%w: denoise strength must be >= 0, got %g", ErrConfig, o.DenoiseStrength)
	}
	if o.Dither < None || o.Dither > Bayer {
		return fmt.Errorf("%w: unknown dither algorithm %d", ErrConfig, int(o.Dither))
	}
	if o.DitherStrength < 0 {
		return fmt.Errorf("%w: dither strength must be >= 0, got %g", ErrConfig, o.DitherStrength)
	}
	if o.EdgeBoost < 0 {
		return fmt.Errorf("%w: edge boost must be >= 0, got %g", ErrConfig, o.EdgeBoost)
	}
	if o.BackgroundDesat < 0 || o.BackgroundDesat > 1 {
		return fmt.Errorf("%w: background desaturation must be in [0,1], got %g", ErrConfig, o.BackgroundDesat)
	}
	if o.CLAHEClip < 0 {
		return fmt.Errorf("%w: CLAHE clip limit must be >= 0, got %g", ErrConfig, o.CLAHEClip)
	}
	return nil
}
