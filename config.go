package meshfilter

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/soypat/meshfilter/collapse"
	"github.com/soypat/meshfilter/quality"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("meshfilter: invalid configuration")

// Config holds the filter coefficients. The zero value is not valid, start
// from DefaultConfig.
type Config struct {
	// MinLen seeds the minimum edge length of every edge. Edges shorter than
	// their local value are collapsed.
	MinLen float64 `toml:"minLen"`
	// MaxCos is the cosine of the merge angle. Points with two edges whose
	// directions are closer than it are merged away. 1 disables.
	MaxCos float64 `toml:"maxCos"`
	// EdgeReductionFactor and FaceReductionFactor scale down the local
	// thresholds around points implicated in bad faces.
	EdgeReductionFactor float64 `toml:"edgeReductionFactor"`
	FaceReductionFactor float64 `toml:"faceReductionFactor"`
	// MaxIterations bounds the number of committed passes.
	MaxIterations int `toml:"maxIterations"`
	// MaxSmoothIters bounds the threshold relaxation rounds of one pass.
	MaxSmoothIters int `toml:"maxSmoothIters"`
	// InitialFaceLengthFactor seeds the face filter factor of every face.
	// Zero disables face collapsing.
	InitialFaceLengthFactor float64 `toml:"initialFaceLengthFactor"`
	// MaxPointErrorCount is the number of times a point may be implicated in
	// a bad face before it is excluded from collapsing.
	MaxPointErrorCount int `toml:"maxPointErrorCount"`
	// ControlMeshQuality rejects passes that increase the number of bad faces.
	ControlMeshQuality bool `toml:"controlMeshQuality"`
	// IndirectPatchFaces names the face zone collapsed by
	// FilterIndirectPatchFaces.
	IndirectPatchFaces  string              `toml:"indirectPatchFaces"`
	CollapseFacesCoeffs collapse.FaceCoeffs `toml:"collapseFacesCoeffs"`
	MeshQuality         quality.Coeffs      `toml:"meshQuality"`
}

// DefaultConfig returns the customary filter settings.
func DefaultConfig() Config {
	return Config{
		MinLen:                  1e-3,
		MaxCos:                  math.Cos(30 * math.Pi / 180),
		EdgeReductionFactor:     0.5,
		FaceReductionFactor:     0.5,
		MaxIterations:           10,
		MaxSmoothIters:          2,
		InitialFaceLengthFactor: 0.5,
		MaxPointErrorCount:      5,
		ControlMeshQuality:      true,
		IndirectPatchFaces:      "indirectPatchFaces",
		CollapseFacesCoeffs:     collapse.DefaultFaceCoeffs(),
		MeshQuality:             quality.DefaultCoeffs(),
	}
}

// Validate checks every coefficient is within range.
func (c Config) Validate() error {
	fc := c.CollapseFacesCoeffs
	switch {
	case !(c.MinLen >= 0) || math.IsInf(c.MinLen, 1):
		return fmt.Errorf("%w: minLen %g must be finite and non-negative", ErrInvalidConfig, c.MinLen)
	case !(c.MaxCos >= 0 && c.MaxCos <= 1):
		return fmt.Errorf("%w: maxCos %g not in [0,1]", ErrInvalidConfig, c.MaxCos)
	case !(c.EdgeReductionFactor > 0 && c.EdgeReductionFactor < 1):
		return fmt.Errorf("%w: edgeReductionFactor %g not in (0,1)", ErrInvalidConfig, c.EdgeReductionFactor)
	case !(c.FaceReductionFactor > 0 && c.FaceReductionFactor < 1):
		return fmt.Errorf("%w: faceReductionFactor %g not in (0,1)", ErrInvalidConfig, c.FaceReductionFactor)
	case c.MaxIterations < 1:
		return fmt.Errorf("%w: maxIterations %d must be positive", ErrInvalidConfig, c.MaxIterations)
	case c.MaxSmoothIters < 1:
		return fmt.Errorf("%w: maxSmoothIters %d must be positive", ErrInvalidConfig, c.MaxSmoothIters)
	case !(c.InitialFaceLengthFactor >= 0) || math.IsInf(c.InitialFaceLengthFactor, 1):
		return fmt.Errorf("%w: initialFaceLengthFactor %g must be finite and non-negative", ErrInvalidConfig, c.InitialFaceLengthFactor)
	case c.MaxPointErrorCount < 1:
		return fmt.Errorf("%w: maxPointErrorCount %d must be positive", ErrInvalidConfig, c.MaxPointErrorCount)
	case !(fc.MaxCollapseFaceToPointSideLengthCoeff >= 0):
		return fmt.Errorf("%w: maxCollapseFaceToPointSideLengthCoeff %g is negative", ErrInvalidConfig, fc.MaxCollapseFaceToPointSideLengthCoeff)
	case !(fc.AllowEarlyCollapseCoeff >= 0):
		return fmt.Errorf("%w: allowEarlyCollapseCoeff %g is negative", ErrInvalidConfig, fc.AllowEarlyCollapseCoeff)
	case !(fc.GuardFraction >= 0 && fc.GuardFraction < 0.5):
		return fmt.Errorf("%w: guardFraction %g not in [0,0.5)", ErrInvalidConfig, fc.GuardFraction)
	}
	if err := c.MeshQuality.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig decodes a TOML configuration from r on top of DefaultConfig and
// validates it. Unknown keys are an error.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
