package pipeline

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/detector"
	"github.com/dudu/glowmirror/internal/enhancer"
	"github.com/dudu/glowmirror/internal/frame"
	"github.com/dudu/glowmirror/internal/makeup"
	"github.com/dudu/glowmirror/internal/regions"
	"github.com/dudu/glowmirror/internal/tone"
)

// Intensities are the per-feature strengths used when a feature config leaves
// its intensity unset
type Intensities struct {
	Lipstick  float64 `mapstructure:"lipstick"`
	Eyeshadow float64 `mapstructure:"eyeshadow"`
	Blush     float64 `mapstructure:"blush"`
}

// Config holds pipeline configuration
type Config struct {
	Regions     regions.Table
	Topology    int
	Intensities Intensities
	BlushRadius int
	BlurKernel  int
	Enhance     bool
	Enhancer    enhancer.Options
}

// DefaultConfig returns the shipped region table and defaults
func DefaultConfig() Config {
	return Config{
		Regions:  regions.DefaultTable(),
		Topology: detector.FaceMeshTopology,
		Intensities: Intensities{
			Lipstick:  0.7,
			Eyeshadow: 0.5,
			Blush:     0.4,
		},
		BlushRadius: makeup.DefaultRadius,
		BlurKernel:  makeup.DefaultBlurKernel,
		Enhance:     true,
		Enhancer:    enhancer.DefaultOptions(),
	}
}

// MakeupConfig selects the features to apply. Nil features are skipped.
type MakeupConfig struct {
	Lipstick  *makeup.FeatureConfig `mapstructure:"lipstick" json:"lipstick,omitempty"`
	Eyeshadow *makeup.FeatureConfig `mapstructure:"eyeshadow" json:"eyeshadow,omitempty"`
	Blush     *makeup.FeatureConfig `mapstructure:"blush" json:"blush,omitempty"`
}

func (c MakeupConfig) feature(f Feature) *makeup.FeatureConfig {
	switch f {
	case Lipstick:
		return c.Lipstick
	case Eyeshadow:
		return c.Eyeshadow
	case Blush:
		return c.Blush
	}
	return nil
}

// Timing holds performance timing information
type Timing struct {
	Detection   time.Duration
	Mapping     time.Duration
	Compositing time.Duration
	Enhance     time.Duration
	Tone        time.Duration
	Total       time.Duration
}

// FeatureResult records the outcome of one configured feature
type FeatureResult struct {
	Feature Feature
	Applied bool
	Err     error
}

// Kind names the failure, or "ok"
func (r FeatureResult) Kind() string {
	switch {
	case r.Err == nil:
		return "ok"
	case errors.Is(r.Err, makeup.ErrInvalidColorFormat):
		return "invalid_color_format"
	case errors.Is(r.Err, frame.ErrInvalidImage):
		return "invalid_image"
	default:
		return "error"
	}
}

// MakeupResult is the composited image plus per-feature outcomes. The caller
// owns Image.
type MakeupResult struct {
	Image    gocv.Mat
	Features []FeatureResult
}

// Result is the outcome of a full pipeline run. Tone analysis failing with
// tone.ErrEmptyRegion leaves Tone nil and sets ToneErr.
type Result struct {
	Image           gocv.Mat
	Features        []FeatureResult
	Regions         regions.RegionSet
	Tone            *tone.Analysis
	ToneErr         error
	Recommendations *tone.Palette
	Timing          Timing
}

// Failed returns the features that were configured but not applied
func (r *Result) Failed() []FeatureResult {
	var failed []FeatureResult
	for _, f := range r.Features {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Close releases the result image
func (r *Result) Close() error {
	return r.Image.Close()
}

// Pipeline sequences region mapping, compositing, enhancement and tone
// analysis. It keeps no per-request state and may be shared across
// goroutines.
type Pipeline struct {
	config     Config
	provider   LandmarkProvider
	mapper     *regions.Mapper
	masks      *makeup.MaskBuilder
	classifier *tone.Classifier
	enhancer   *enhancer.Enhancer
}

// New creates a pipeline. provider may be nil when only Apply is used with
// precomputed landmarks; the pipeline does not take ownership of it.
func New(config Config, provider LandmarkProvider) (*Pipeline, error) {
	if config.Regions == nil {
		config.Regions = regions.DefaultTable()
	}
	if config.Topology == 0 {
		config.Topology = detector.FaceMeshTopology
	}

	mapper, err := regions.NewMapper(config.Regions, config.Topology)
	if err != nil {
		return nil, fmt.Errorf("failed to create region mapper: %w", err)
	}

	return &Pipeline{
		config:     config,
		provider:   provider,
		mapper:     mapper,
		masks:      makeup.NewMaskBuilder(config.BlushRadius, config.BlurKernel),
		classifier: tone.NewClassifier(),
		enhancer:   enhancer.New(config.Enhancer),
	}, nil
}

// Mapper returns the region mapper in use
func (p *Pipeline) Mapper() *regions.Mapper {
	return p.mapper
}

// DetectRegions runs the landmark provider and maps its output
func (p *Pipeline) DetectRegions(img gocv.Mat) (regions.RegionSet, error) {
	landmarks, err := p.detect(img)
	if err != nil {
		return nil, err
	}
	return p.mapper.Map(landmarks)
}

func (p *Pipeline) detect(img gocv.Mat) (detector.LandmarkSet, error) {
	if err := frame.Validate(img); err != nil {
		return nil, err
	}
	if p.provider == nil {
		return nil, fmt.Errorf("no landmark provider configured")
	}

	landmarks, err := p.provider.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("landmark detection failed: %w", err)
	}
	return landmarks, nil
}

// ApplyMakeup composites each configured feature in order. A feature that
// fails leaves the working image untouched and is reported in Features; only
// invalid image buffers abort the call.
func (p *Pipeline) ApplyMakeup(img gocv.Mat, set regions.RegionSet, cfg MakeupConfig) (MakeupResult, error) {
	if err := frame.Validate(img); err != nil {
		return MakeupResult{}, err
	}

	working := img.Clone()
	var features []FeatureResult

	for _, f := range FeatureOrder {
		fc := cfg.feature(f)
		if fc == nil {
			continue
		}

		next, err := p.applyFeature(working, set, f, *fc)
		if err != nil {
			if errors.Is(err, frame.ErrInvalidImage) {
				working.Close()
				return MakeupResult{}, fmt.Errorf("%s: %w", f, err)
			}
			log.WithFields(log.Fields{
				"feature": f,
				"color":   fc.Color,
			}).WithError(err).Warn("feature skipped")
			features = append(features, FeatureResult{Feature: f, Err: err})
			continue
		}

		working.Close()
		working = next
		features = append(features, FeatureResult{Feature: f, Applied: true})
	}

	return MakeupResult{Image: working, Features: features}, nil
}

func (p *Pipeline) applyFeature(img gocv.Mat, set regions.RegionSet, f Feature, fc makeup.FeatureConfig) (gocv.Mat, error) {
	color, err := makeup.ParseColor(fc.Color)
	if err != nil {
		return gocv.NewMat(), err
	}

	mask, err := p.featureMask(set, f, img.Rows(), img.Cols())
	if err != nil {
		return gocv.NewMat(), err
	}
	defer mask.Close()

	intensity := fc.IntensityOr(p.defaultIntensity(f))
	log.WithFields(log.Fields{
		"feature":   f,
		"color":     color.Hex(),
		"intensity": intensity,
	}).Debug("compositing feature")

	return makeup.Composite(img, mask, color, intensity)
}

// featureMask is the polygon of the lips, the union of both eye polygons, or
// feathered disks at the cheek points
func (p *Pipeline) featureMask(set regions.RegionSet, f Feature, rows, cols int) (gocv.Mat, error) {
	switch f {
	case Lipstick:
		return p.masks.Build(set[regions.Lips], makeup.ModePolygon, rows, cols)

	case Eyeshadow:
		left, err := p.masks.Build(set[regions.LeftEye], makeup.ModePolygon, rows, cols)
		if err != nil {
			return gocv.NewMat(), err
		}
		defer left.Close()
		right, err := p.masks.Build(set[regions.RightEye], makeup.ModePolygon, rows, cols)
		if err != nil {
			return gocv.NewMat(), err
		}
		defer right.Close()
		return makeup.Union(left, right)

	case Blush:
		return p.masks.Build(set[regions.Cheeks], makeup.ModeFeathered, rows, cols)
	}

	return gocv.NewMat(), fmt.Errorf("unknown feature %q", f)
}

func (p *Pipeline) defaultIntensity(f Feature) float64 {
	switch f {
	case Lipstick:
		return p.config.Intensities.Lipstick
	case Eyeshadow:
		return p.config.Intensities.Eyeshadow
	case Blush:
		return p.config.Intensities.Blush
	}
	return 0
}

// ClassifyTone samples skin tone under the cheek and lip regions
func (p *Pipeline) ClassifyTone(img gocv.Mat, set regions.RegionSet) (tone.Analysis, error) {
	return p.classifier.ClassifyRegions(img, set)
}

// Recommend returns the palette for a tone
func (p *Pipeline) Recommend(t tone.SkinTone) tone.Palette {
	return tone.Recommend(t)
}

// Enhance runs the contrast and sharpening pass
func (p *Pipeline) Enhance(img gocv.Mat) (gocv.Mat, error) {
	return p.enhancer.Enhance(img)
}

// Apply runs the full pipeline for precomputed landmarks. Tone is measured on
// img, not on the composited result.
func (p *Pipeline) Apply(img gocv.Mat, landmarks detector.LandmarkSet, cfg MakeupConfig) (*Result, error) {
	totalStart := time.Now()
	var timing Timing

	if err := frame.Validate(img); err != nil {
		return nil, err
	}

	mapStart := time.Now()
	set, err := p.mapper.Map(landmarks)
	timing.Mapping = time.Since(mapStart)
	if err != nil {
		return nil, err
	}
	if names := regions.Intersections(set); len(names) > 0 {
		log.WithField("regions", names).Debug("self-intersecting region boundaries")
	}

	compositeStart := time.Now()
	made, err := p.ApplyMakeup(img, set, cfg)
	timing.Compositing = time.Since(compositeStart)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Image:    made.Image,
		Features: made.Features,
		Regions:  set,
	}

	if p.config.Enhance {
		enhanceStart := time.Now()
		enhanced, err := p.enhancer.Enhance(result.Image)
		timing.Enhance = time.Since(enhanceStart)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("enhance failed: %w", err)
		}
		result.Image.Close()
		result.Image = enhanced
	}

	toneStart := time.Now()
	analysis, err := p.classifier.ClassifyRegions(img, set)
	timing.Tone = time.Since(toneStart)
	switch {
	case err == nil:
		palette := tone.Recommend(analysis.Tone)
		result.Tone = &analysis
		result.Recommendations = &palette
	case errors.Is(err, tone.ErrEmptyRegion):
		log.WithError(err).Warn("tone analysis skipped")
		result.ToneErr = err
	default:
		result.Close()
		return nil, fmt.Errorf("tone analysis failed: %w", err)
	}

	timing.Total = time.Since(totalStart)
	result.Timing = timing

	log.WithFields(log.Fields{
		"features": len(result.Features),
		"failed":   len(result.Failed()),
		"tone":     toneName(result.Tone),
		"total":    timing.Total,
	}).Debug("pipeline complete")

	return result, nil
}

// Process detects landmarks with the provider and runs Apply
func (p *Pipeline) Process(img gocv.Mat, cfg MakeupConfig) (*Result, error) {
	detectStart := time.Now()
	landmarks, err := p.detect(img)
	detection := time.Since(detectStart)
	if err != nil {
		return nil, err
	}

	result, err := p.Apply(img, landmarks, cfg)
	if err != nil {
		return nil, err
	}
	result.Timing.Detection = detection
	result.Timing.Total += detection
	return result, nil
}

func toneName(a *tone.Analysis) string {
	if a == nil {
		return "unknown"
	}
	return string(a.Tone)
}
