package main

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dudu/glowmirror/internal/detector"
	"github.com/dudu/glowmirror/internal/inference"
	"github.com/dudu/glowmirror/internal/makeup"
	"github.com/dudu/glowmirror/internal/pipeline"
)

// engine bundles the pipeline with the landmark provider it was built on
type engine struct {
	pipeline *pipeline.Pipeline
	provider *detector.FaceMesh
}

// newEngine builds the pipeline. With detect false no models are loaded and
// callers must supply landmarks.
func newEngine(detect bool) (*engine, error) {
	pc, err := cfg.PipelineConfig()
	if err != nil {
		return nil, err
	}

	e := &engine{}
	var provider pipeline.LandmarkProvider

	if detect {
		if err := inference.Initialize(cfg.Models.Library); err != nil {
			return nil, fmt.Errorf("failed to initialize inference: %w", err)
		}

		boxOpts, meshOpts, err := cfg.DetectorOptions()
		if err != nil {
			inference.Shutdown()
			return nil, err
		}

		log.WithFields(log.Fields{
			"scrfd":     boxOpts.ModelPath,
			"face_mesh": meshOpts.ModelPath,
			"backend":   cfg.Models.Backend,
		}).Info("Loading models")

		mesh, err := detector.NewFaceMesh(boxOpts, meshOpts)
		if err != nil {
			inference.Shutdown()
			return nil, fmt.Errorf("failed to create landmark provider: %w", err)
		}
		e.provider = mesh
		provider = mesh
	}

	p, err := pipeline.New(pc, provider)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.pipeline = p
	return e, nil
}

// run applies makeup using landmarks when given, otherwise the provider
func (e *engine) run(img gocv.Mat, landmarks detector.LandmarkSet, mc pipeline.MakeupConfig) (*pipeline.Result, error) {
	if landmarks != nil {
		return e.pipeline.Apply(img, landmarks, mc)
	}
	return e.pipeline.Process(img, mc)
}

// Close releases the provider and the inference runtime
func (e *engine) Close() {
	if e.provider == nil {
		return
	}
	if err := e.provider.Close(); err != nil {
		log.WithError(err).Warn("Failed to close landmark provider")
	}
	if err := inference.Shutdown(); err != nil {
		log.WithError(err).Warn("Failed to shut down inference runtime")
	}
}

// makeupFlags collects per-feature color and intensity flags
type makeupFlags struct {
	lipstick           string
	eyeshadow          string
	blush              string
	lipstickIntensity  float64
	eyeshadowIntensity float64
	blushIntensity     float64
}

func (f *makeupFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.lipstick, "lipstick", "", "Lipstick color (#RRGGBB)")
	flags.StringVar(&f.eyeshadow, "eyeshadow", "", "Eyeshadow color (#RRGGBB)")
	flags.StringVar(&f.blush, "blush", "", "Blush color (#RRGGBB)")
	flags.Float64Var(&f.lipstickIntensity, "lipstick-intensity", 0, "Lipstick intensity 0..1 (default from config)")
	flags.Float64Var(&f.eyeshadowIntensity, "eyeshadow-intensity", 0, "Eyeshadow intensity 0..1 (default from config)")
	flags.Float64Var(&f.blushIntensity, "blush-intensity", 0, "Blush intensity 0..1 (default from config)")
}

// config maps the flags to a makeup config. Features without a color are
// skipped and intensities not given on the command line stay unset.
func (f *makeupFlags) config(cmd *cobra.Command) pipeline.MakeupConfig {
	feature := func(color, intensityFlag string, intensity float64) *makeup.FeatureConfig {
		if color == "" {
			return nil
		}
		fc := &makeup.FeatureConfig{Color: color}
		if cmd.Flags().Changed(intensityFlag) {
			fc.Intensity = &intensity
		}
		return fc
	}

	return pipeline.MakeupConfig{
		Lipstick:  feature(f.lipstick, "lipstick-intensity", f.lipstickIntensity),
		Eyeshadow: feature(f.eyeshadow, "eyeshadow-intensity", f.eyeshadowIntensity),
		Blush:     feature(f.blush, "blush-intensity", f.blushIntensity),
	}
}

func (f *makeupFlags) empty() bool {
	return f.lipstick == "" && f.eyeshadow == "" && f.blush == ""
}

func readImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("failed to load image: %s", path)
	}
	return img, nil
}

func writeImage(path string, img gocv.Mat) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("failed to write image: %s", path)
	}
	return nil
}

// outputPath inserts suffix before the extension of input, placed in dir
// when dir is set
func outputPath(input, dir, suffix string) string {
	ext := filepath.Ext(input)
	name := strings.TrimSuffix(filepath.Base(input), ext) + suffix + ext
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}

// loadLandmarks reads a JSON array of [x, y] pixel pairs
func loadLandmarks(path string) (detector.LandmarkSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read landmarks: %w", err)
	}

	var pairs [][2]int
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse landmarks %s: %w", path, err)
	}

	set := make(detector.LandmarkSet, len(pairs))
	for i, p := range pairs {
		set[i] = image.Pt(p[0], p[1])
	}
	return set, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
