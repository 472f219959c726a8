// Package config loads the rezone.yaml configuration and sets up logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joeblew999/plat-rezone/internal/dataset"
	"github.com/joeblew999/plat-rezone/internal/mapview"
	"github.com/joeblew999/plat-rezone/internal/zoning"
)

// Config holds the full application configuration.
type Config struct {
	Datasets   DatasetsConfig     `yaml:"datasets" mapstructure:"datasets"`
	Classifier ClassifierConfig   `yaml:"classifier" mapstructure:"classifier"`
	FARTable   map[string]float64 `yaml:"far_table" mapstructure:"far_table"`
	Map        MapConfig          `yaml:"map" mapstructure:"map"`
	Tiles      TilesConfig        `yaml:"tiles" mapstructure:"tiles"`
	Log        LogConfig          `yaml:"log" mapstructure:"log"`
	Dev        DevConfig          `yaml:"dev" mapstructure:"dev"`
}

// DatasetsConfig locates the input files. Paths may be http(s) URLs.
type DatasetsConfig struct {
	Zoning   string `yaml:"zoning" mapstructure:"zoning"`
	Building string `yaml:"building" mapstructure:"building"`
	Value    string `yaml:"value" mapstructure:"value"`
	// MaxParallel bounds concurrent reads; 0 reads every file at once.
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// ClassifierConfig tunes the zone classifier.
type ClassifierConfig struct {
	ManufacturingPrefixes []string `yaml:"manufacturing_prefixes" mapstructure:"manufacturing_prefixes"`
}

// MapConfig configures the viewer page.
type MapConfig struct {
	FitPadding  int         `yaml:"fit_padding" mapstructure:"fit_padding"`
	MaxZoom     float64     `yaml:"max_zoom" mapstructure:"max_zoom"`
	Shift       float64     `yaml:"shift" mapstructure:"shift"`
	VectorTiles bool        `yaml:"vector_tiles" mapstructure:"vector_tiles"`
	BaseStyle   string      `yaml:"base_style" mapstructure:"base_style"`
	Style       StyleConfig `yaml:"style" mapstructure:"style"`
}

// StyleConfig sets the ramp ends of the choropleth layers.
type StyleConfig struct {
	FARMax         float64 `yaml:"far_max" mapstructure:"far_max"`
	BuildingFARMin float64 `yaml:"building_far_min" mapstructure:"building_far_min"`
	ValueMax       float64 `yaml:"value_max" mapstructure:"value_max"`
}

// TilesConfig configures the vector tile cache.
type TilesConfig struct {
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DevConfig holds development-only switches.
type DevConfig struct {
	// TemplatesDir serves fragments from disk instead of the embedded copy.
	TemplatesDir string `yaml:"templates_dir" mapstructure:"templates_dir"`
}

// Load reads configuration from path, or from rezone.yaml in the working
// directory when path is empty, then from REZONE_* environment variables.
// A missing rezone.yaml is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rezone")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("REZONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	style := mapview.DefaultStyleOptions()
	v.SetDefault("datasets.zoning", "data/zoning.geojson")
	v.SetDefault("datasets.building", "data/blocks.geojson")
	v.SetDefault("datasets.value", "data/blocks.geojson")
	v.SetDefault("datasets.max_parallel", 0)
	v.SetDefault("classifier.manufacturing_prefixes", zoning.DefaultManufacturingPrefixes)
	v.SetDefault("map.fit_padding", 40)
	v.SetDefault("map.max_zoom", 15)
	v.SetDefault("map.shift", 0.002)
	v.SetDefault("map.vector_tiles", false)
	v.SetDefault("map.base_style", "https://basemaps.cartocdn.com/gl/dark-matter-gl-style/style.json")
	v.SetDefault("map.style.far_max", style.FARMax)
	v.SetDefault("map.style.building_far_min", style.BuildingFARMin)
	v.SetDefault("map.style.value_max", style.ValueMax)
	v.SetDefault("tiles.cache_size", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless named)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Paths returns the dataset locations for the loader.
func (c *Config) Paths() dataset.Paths {
	return dataset.Paths{
		Zoning:   c.Datasets.Zoning,
		Building: c.Datasets.Building,
		Value:    c.Datasets.Value,
	}
}

// Annotator builds the parcel annotator. An empty far_table falls back to
// the built-in baselines.
func (c *Config) Annotator() zoning.Annotator {
	table := zoning.DefaultFARTable
	if len(c.FARTable) > 0 {
		table = zoning.NewFARTable(c.FARTable)
	}
	return zoning.Annotator{
		Classifier: zoning.NewClassifier(c.Classifier.ManufacturingPrefixes...),
		FAR:        table,
	}
}

// StyleOptions returns the layer ramps.
func (c *Config) StyleOptions() mapview.StyleOptions {
	return mapview.StyleOptions{
		FARMax:         c.Map.Style.FARMax,
		BuildingFARMin: c.Map.Style.BuildingFARMin,
		ValueMax:       c.Map.Style.ValueMax,
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
