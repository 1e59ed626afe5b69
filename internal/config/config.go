package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ironsheep/landcover-mcp/internal/basemap"
	"github.com/ironsheep/landcover-mcp/internal/classify"
	"github.com/ironsheep/landcover-mcp/internal/reproject"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = eris.New("config: invalid")

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Subset    SubsetConfig    `yaml:"subset" mapstructure:"subset"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Reproject ReprojectConfig `yaml:"reproject" mapstructure:"reproject"`
	Basemap   BasemapConfig   `yaml:"basemap" mapstructure:"basemap"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig selects the band files to stack.
type InputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Pattern string   `yaml:"pattern" mapstructure:"pattern"`
	Bands   []string `yaml:"bands" mapstructure:"bands"`
	Order   []int    `yaml:"order" mapstructure:"order"`
	// CRS is assumed for files without georeferenced CRS metadata.
	CRS         string `yaml:"crs" mapstructure:"crs"`
	Parallelism int    `yaml:"parallelism" mapstructure:"parallelism"`
}

// SubsetConfig crops the stack to an extent in the stack CRS. All zero
// disables cropping.
type SubsetConfig struct {
	MinX float64 `yaml:"min_x" mapstructure:"min_x"`
	MinY float64 `yaml:"min_y" mapstructure:"min_y"`
	MaxX float64 `yaml:"max_x" mapstructure:"max_x"`
	MaxY float64 `yaml:"max_y" mapstructure:"max_y"`
}

// Enabled reports whether any bound is set.
func (s SubsetConfig) Enabled() bool {
	return s.MinX != 0 || s.MinY != 0 || s.MaxX != 0 || s.MaxY != 0
}

// ClassifyConfig configures k-means.
type ClassifyConfig struct {
	K             int    `yaml:"k" mapstructure:"k"`
	Seed          int64  `yaml:"seed" mapstructure:"seed"`
	MaxIterations int    `yaml:"max_iterations" mapstructure:"max_iterations"`
	Init          string `yaml:"init" mapstructure:"init"`
	// ClassNames and Colors are keyed by class code.
	ClassNames map[string]string `yaml:"class_names" mapstructure:"class_names"`
	Colors     map[string]string `yaml:"colors" mapstructure:"colors"`
}

// ReprojectConfig configures the output grid.
type ReprojectConfig struct {
	TargetCRS  string  `yaml:"target_crs" mapstructure:"target_crs"`
	Resampling string  `yaml:"resampling" mapstructure:"resampling"`
	CellSize   float64 `yaml:"cell_size" mapstructure:"cell_size"`
}

// BasemapConfig configures the tile backdrop.
type BasemapConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Provider string `yaml:"provider" mapstructure:"provider"`
	// URLTemplate replaces the named provider's template when set.
	URLTemplate string  `yaml:"url_template" mapstructure:"url_template"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	Zoom        int     `yaml:"zoom" mapstructure:"zoom"`
	MaxTiles    int     `yaml:"max_tiles" mapstructure:"max_tiles"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CachePath   string  `yaml:"cache_path" mapstructure:"cache_path"`
}

// RenderConfig configures the composed map.
type RenderConfig struct {
	Width            int      `yaml:"width" mapstructure:"width"`
	Opacity          float64  `yaml:"opacity" mapstructure:"opacity"`
	Grayscale        bool     `yaml:"grayscale" mapstructure:"grayscale"`
	Legend           bool     `yaml:"legend" mapstructure:"legend"`
	LegendTitle      string   `yaml:"legend_title" mapstructure:"legend_title"`
	ScaleBar         bool     `yaml:"scale_bar" mapstructure:"scale_bar"`
	NorthArrow       bool     `yaml:"north_arrow" mapstructure:"north_arrow"`
	Graticule        bool     `yaml:"graticule" mapstructure:"graticule"`
	GraticuleSpacing float64  `yaml:"graticule_spacing" mapstructure:"graticule_spacing"`
	Ellipsoid        string   `yaml:"ellipsoid" mapstructure:"ellipsoid"`
	Overlays         []string `yaml:"overlays" mapstructure:"overlays"`
	OverlayColor     string   `yaml:"overlay_color" mapstructure:"overlay_color"`
	Attribution      string   `yaml:"attribution" mapstructure:"attribution"`
}

// OutputConfig selects where and what to write.
type OutputConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	Prefix     string `yaml:"prefix" mapstructure:"prefix"`
	ASCII      bool   `yaml:"ascii" mapstructure:"ascii"`
	Signatures bool   `yaml:"signatures" mapstructure:"signatures"`
	Footprint  bool   `yaml:"footprint" mapstructure:"footprint"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.dir", "")
	v.SetDefault("input.pattern", "*.tif")
	v.SetDefault("input.bands", []string{})
	v.SetDefault("input.order", []int{})
	v.SetDefault("input.crs", "")
	v.SetDefault("input.parallelism", 4)
	v.SetDefault("subset.min_x", 0.0)
	v.SetDefault("subset.min_y", 0.0)
	v.SetDefault("subset.max_x", 0.0)
	v.SetDefault("subset.max_y", 0.0)
	v.SetDefault("classify.k", classify.DefaultK)
	v.SetDefault("classify.seed", classify.DefaultSeed)
	v.SetDefault("classify.max_iterations", classify.DefaultMaxIterations)
	v.SetDefault("classify.init", string(classify.InitKMeansPlusPlus))
	v.SetDefault("reproject.target_crs", reproject.WGS84)
	v.SetDefault("reproject.resampling", "auto")
	v.SetDefault("reproject.cell_size", 0.0)
	v.SetDefault("basemap.enabled", true)
	v.SetDefault("basemap.provider", "osm")
	v.SetDefault("basemap.url_template", "")
	v.SetDefault("basemap.user_agent", "landcover-mcp/1.0")
	v.SetDefault("basemap.zoom", 0)
	v.SetDefault("basemap.max_tiles", 64)
	v.SetDefault("basemap.rate_limit", 2.0)
	v.SetDefault("basemap.timeout_secs", 30)
	v.SetDefault("basemap.cache_path", "")
	v.SetDefault("render.width", 1024)
	v.SetDefault("render.opacity", 0.6)
	v.SetDefault("render.grayscale", false)
	v.SetDefault("render.legend", true)
	v.SetDefault("render.legend_title", "Land cover")
	v.SetDefault("render.scale_bar", true)
	v.SetDefault("render.north_arrow", true)
	v.SetDefault("render.graticule", false)
	v.SetDefault("render.graticule_spacing", 0.0)
	v.SetDefault("render.ellipsoid", "WGS84")
	v.SetDefault("render.overlays", []string{})
	v.SetDefault("render.overlay_color", "#202020")
	v.SetDefault("render.attribution", "")
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.prefix", "landcover")
	v.SetDefault("output.ascii", true)
	v.SetDefault("output.signatures", true)
	v.SetDefault("output.footprint", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from file and environment. An empty path looks
// for an optional landcover.yaml in the working directory; an explicit path
// must exist. Environment variables use the LANDCOVER_ prefix with dots
// replaced by underscores, e.g. LANDCOVER_CLASSIFY_K.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("landcover")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LANDCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

// Default returns the configuration Load produces with no file or
// environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks a configuration before a pipeline run.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Input.Dir) == "" {
		add("input.dir is required")
	}
	if c.Input.Parallelism < 0 {
		add("input.parallelism must not be negative")
	}
	if c.Subset.Enabled() && !(c.Subset.MinX < c.Subset.MaxX && c.Subset.MinY < c.Subset.MaxY) {
		add("subset needs min_x < max_x and min_y < max_y")
	}
	if c.Classify.K < 1 {
		add("classify.k must be at least 1, got %d", c.Classify.K)
	}
	if c.Classify.MaxIterations < 1 {
		add("classify.max_iterations must be at least 1, got %d", c.Classify.MaxIterations)
	}
	if _, err := classify.ParseInit(c.Classify.Init); err != nil {
		add("classify.init %q is not kmeans++ or forgy", c.Classify.Init)
	}
	if _, err := reproject.ProjString(c.Reproject.TargetCRS); err != nil {
		add("reproject.target_crs %q is not supported", c.Reproject.TargetCRS)
	}
	if _, err := reproject.ParseResampling(c.Reproject.Resampling); err != nil {
		add("reproject.resampling %q is not auto, nearest or bilinear", c.Reproject.Resampling)
	}
	if c.Reproject.CellSize < 0 {
		add("reproject.cell_size must not be negative")
	}
	if c.Basemap.Enabled && c.Basemap.URLTemplate == "" {
		if _, err := basemap.LookupProvider(c.Basemap.Provider); err != nil {
			add("basemap.provider %q is unknown (known: %s)", c.Basemap.Provider, strings.Join(basemap.ProviderNames(), ", "))
		}
	}
	if c.Basemap.Zoom < 0 || c.Basemap.Zoom > 22 {
		add("basemap.zoom must be within 0-22, got %d", c.Basemap.Zoom)
	}
	if c.Render.Width < 16 || c.Render.Width > 8192 {
		add("render.width must be within 16-8192, got %d", c.Render.Width)
	}
	if !(c.Render.Opacity > 0 && c.Render.Opacity <= 1) || math.IsNaN(c.Render.Opacity) {
		add("render.opacity must be within (0, 1], got %g", c.Render.Opacity)
	}
	if c.Output.Dir == "" {
		add("output.dir is required")
	}

	if len(problems) > 0 {
		return eris.Wrap(ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger. Both formats write to
// stderr so that stdout stays free for the MCP transport.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

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
