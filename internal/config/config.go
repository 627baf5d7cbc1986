package config

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/dudu/glowmirror/internal/detector"
	"github.com/dudu/glowmirror/internal/enhancer"
	"github.com/dudu/glowmirror/internal/inference"
	"github.com/dudu/glowmirror/internal/pipeline"
	"github.com/dudu/glowmirror/internal/regions"
)

// EnvPrefix is prepended to environment overrides, e.g. GLOWMIRROR_LOG_LEVEL
const EnvPrefix = "GLOWMIRROR"

// Config is the application configuration
type Config struct {
	Log       LogConfig        `mapstructure:"log"`
	Models    ModelsConfig     `mapstructure:"models"`
	Detection DetectionConfig  `mapstructure:"detection"`
	Makeup    MakeupConfig     `mapstructure:"makeup"`
	Enhance   EnhanceConfig    `mapstructure:"enhance"`
	Regions   map[string][]int `mapstructure:"regions"` // per-region index overrides
	Batch     BatchConfig      `mapstructure:"batch"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ModelsConfig locates the ONNX runtime and model files
type ModelsConfig struct {
	Backend         string `mapstructure:"backend"` // onnx or coreml
	Library         string `mapstructure:"library"`
	SCRFD           string `mapstructure:"scrfd"`
	FaceMesh        string `mapstructure:"face_mesh"`
	InputName       string `mapstructure:"input_name"`
	LandmarksOutput string `mapstructure:"landmarks_output"`
	PresenceOutput  string `mapstructure:"presence_output"`
}

// DetectionConfig holds face detection thresholds
type DetectionConfig struct {
	InputSize         int     `mapstructure:"input_size"`
	ConfThreshold     float64 `mapstructure:"conf_threshold"`
	NMSThreshold      float64 `mapstructure:"nms_threshold"`
	MeshInputSize     int     `mapstructure:"mesh_input_size"`
	CropScale         float64 `mapstructure:"crop_scale"`
	PresenceThreshold float64 `mapstructure:"presence_threshold"`
}

// MakeupConfig holds compositing defaults
type MakeupConfig struct {
	Intensities pipeline.Intensities `mapstructure:"intensities"`
	BlushRadius int                  `mapstructure:"blush_radius"`
	BlurKernel  int                  `mapstructure:"blur_kernel"`
}

// EnhanceConfig holds the enhancement pass settings
type EnhanceConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	enhancer.Options `mapstructure:",squash"`
}

// BatchConfig holds CLI batch settings
type BatchConfig struct {
	Workers int    `mapstructure:"workers"`
	Suffix  string `mapstructure:"suffix"`
}

// Load reads configuration from file, environment variables and defaults. A
// missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Debugf("Config loaded from %s", configPath)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if _, err := cfg.Backend(); err != nil {
		return nil, err
	}
	if cfg.Batch.Workers <= 0 {
		return nil, fmt.Errorf("batch.workers must be positive, got %d", cfg.Batch.Workers)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("models.backend", string(pipeline.BackendONNX))
	v.SetDefault("models.library", "")
	v.SetDefault("models.scrfd", "models/scrfd_10g.onnx")
	v.SetDefault("models.face_mesh", "models/face_mesh.onnx")
	v.SetDefault("models.input_name", "input_1")
	v.SetDefault("models.landmarks_output", "conv2d_21")
	v.SetDefault("models.presence_output", "conv2d_31")

	// single face, fixed thresholds
	v.SetDefault("detection.input_size", 640)
	v.SetDefault("detection.conf_threshold", 0.5)
	v.SetDefault("detection.nms_threshold", 0.4)
	v.SetDefault("detection.mesh_input_size", 192)
	v.SetDefault("detection.crop_scale", 1.5)
	v.SetDefault("detection.presence_threshold", 0.5)

	v.SetDefault("makeup.intensities.lipstick", 0.7)
	v.SetDefault("makeup.intensities.eyeshadow", 0.5)
	v.SetDefault("makeup.intensities.blush", 0.4)
	v.SetDefault("makeup.blush_radius", 30)
	v.SetDefault("makeup.blur_kernel", 51)

	opts := enhancer.DefaultOptions()
	v.SetDefault("enhance.enabled", true)
	v.SetDefault("enhance.clip_limit", opts.ClipLimit)
	v.SetDefault("enhance.tile_grid", opts.TileGrid)
	v.SetDefault("enhance.contrast_weight", opts.ContrastWeight)
	v.SetDefault("enhance.sharpen_weight", opts.SharpenWeight)

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.suffix", "_glow")
}

// Backend returns the validated inference backend
func (c *Config) Backend() (pipeline.Backend, error) {
	backend := pipeline.Backend(strings.ToLower(c.Models.Backend))
	if backend != pipeline.BackendONNX && backend != pipeline.BackendCoreML {
		return "", fmt.Errorf("invalid backend: %s (use 'onnx' or 'coreml')", c.Models.Backend)
	}
	return backend, nil
}

// RegionTable returns the shipped table with any configured overrides
// applied
func (c *Config) RegionTable() (regions.Table, error) {
	table := regions.DefaultTable()
	for name, indices := range c.Regions {
		n := regions.Name(strings.ToLower(name))
		if _, ok := table[n]; !ok {
			return nil, fmt.Errorf("unknown region %q", name)
		}
		table[n] = append([]int(nil), indices...)
	}
	return table, nil
}

// PipelineConfig builds the pipeline settings
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	table, err := c.RegionTable()
	if err != nil {
		return pipeline.Config{}, err
	}

	return pipeline.Config{
		Regions:     table,
		Topology:    detector.FaceMeshTopology,
		Intensities: c.Makeup.Intensities,
		BlushRadius: c.Makeup.BlushRadius,
		BlurKernel:  c.Makeup.BlurKernel,
		Enhance:     c.Enhance.Enabled,
		Enhancer:    c.Enhance.Options,
	}, nil
}

// DetectorOptions builds the face box and face-mesh settings
func (c *Config) DetectorOptions() (detector.SCRFDOptions, detector.FaceMeshOptions, error) {
	backend, err := c.Backend()
	if err != nil {
		return detector.SCRFDOptions{}, detector.FaceMeshOptions{}, err
	}
	session := inference.SessionOptions{CoreML: backend == pipeline.BackendCoreML}

	boxes := detector.SCRFDOptions{
		ModelPath:     c.Models.SCRFD,
		InputSize:     c.Detection.InputSize,
		ConfThreshold: float32(c.Detection.ConfThreshold),
		NMSThreshold:  float32(c.Detection.NMSThreshold),
		Session:       session,
	}

	mesh := detector.DefaultFaceMeshOptions(c.Models.FaceMesh)
	mesh.InputName = c.Models.InputName
	mesh.LandmarksOutput = c.Models.LandmarksOutput
	mesh.PresenceOutput = c.Models.PresenceOutput
	mesh.InputSize = c.Detection.MeshInputSize
	mesh.CropScale = float32(c.Detection.CropScale)
	mesh.PresenceThreshold = float32(c.Detection.PresenceThreshold)
	mesh.Session = session

	return boxes, mesh, nil
}
