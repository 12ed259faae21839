package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/swdee/go-cocohelper"
	"github.com/swdee/go-cocohelper/segmentation"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log          LogConfig          `yaml:"log"`
	Paths        PathsConfig        `yaml:"paths"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
}

type LogConfig struct {
	// Path of the rotated log file, empty logs to stderr only
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

type PathsConfig struct {
	AnnDir  string `yaml:"ann_dir"`
	AnnFile string `yaml:"ann_file"`
	ImgDir  string `yaml:"img_dir"`
}

type SegmentationConfig struct {
	Mode              string  `yaml:"mode"`
	SimplifyTolerance float64 `yaml:"simplify_tolerance"`
	CompressionFactor float64 `yaml:"compression_factor"`
}

func defaultConfig() *Config {
	def := cocohelper.DefaultPaths()
	opts := segmentation.DefaultPolygonOptions()
	return &Config{
		Log: LogConfig{Level: "info"},
		Paths: PathsConfig{
			AnnDir:  def.AnnDir,
			AnnFile: def.AnnFile,
			ImgDir:  def.ImgDir,
		},
		Segmentation: SegmentationConfig{
			Mode:              segmentation.ModePolygon.String(),
			SimplifyTolerance: opts.SimplifyTolerance,
			CompressionFactor: opts.CompressionFactor,
		},
	}
}

// loadConfig reads the yaml config file over the defaults, an empty fname
// returns the defaults
func loadConfig(fname string) (*Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(fname) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "read config file failed")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "unmarshal config %s failed", fname)
	}
	if _, err := cfg.level(); err != nil {
		return nil, err
	}
	if _, err := cfg.mode(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return l, errors.Wrapf(err, "invalid log level %q", c.Log.Level)
	}
	return l, nil
}

func (c *Config) mode() (segmentation.Mode, error) {
	m, err := segmentation.ParseMode(c.Segmentation.Mode)
	if err != nil {
		return m, errors.Wrap(err, "invalid segmentation mode")
	}
	return m, nil
}

func (c *Config) paths() cocohelper.Paths {
	return cocohelper.Paths{
		AnnFile: c.Paths.AnnFile,
		AnnDir:  c.Paths.AnnDir,
		ImgDir:  c.Paths.ImgDir,
	}
}

func (c *Config) polygonOptions() segmentation.PolygonOptions {
	return segmentation.PolygonOptions{
		SimplifyTolerance: c.Segmentation.SimplifyTolerance,
		CompressionFactor: c.Segmentation.CompressionFactor,
	}
}
