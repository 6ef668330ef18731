package mosaic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/mosaic/physics"
)

// ConfigEnv names the config file when no path is given.
const ConfigEnv = "MOSAIC_CONFIG"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Scene     SceneConfig     `yaml:"scene"`
	App       AppConfig       `yaml:"app"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	DebugFeed DebugFeedConfig `yaml:"debug_feed"`
}

type LogConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

type PhysicsConfig struct {
	Gravity          physics.Vec3              `yaml:"gravity"`
	FixedTimestep    float64                   `yaml:"fixed_timestep"`
	TickRateHz       float64                   `yaml:"tick_rate_hz"`
	MaxBacklog       int                       `yaml:"max_backlog"`
	AllowSleep       bool                      `yaml:"allow_sleep"`
	SleepThreshold   float64                   `yaml:"sleep_threshold"`
	SleepTime        float64                   `yaml:"sleep_time"`
	ContactMaterials []physics.ContactMaterial `yaml:"contact_materials"`
	DefaultContact   physics.ContactMaterial   `yaml:"default_contact"`
}

func (c PhysicsConfig) WorldSettings() physics.WorldSettings {
	return physics.WorldSettings{
		Gravity:          c.Gravity,
		ContactMaterials: append([]physics.ContactMaterial(nil), c.ContactMaterials...),
		DefaultContact:   c.DefaultContact,
		AllowSleep:       c.AllowSleep,
		SleepThreshold:   c.SleepThreshold,
		SleepTime:        c.SleepTime,
	}
}

func (c PhysicsConfig) BridgeConfig() BridgeConfig {
	return BridgeConfig{World: c.WorldSettings(), FixedTimestep: c.FixedTimestep}
}

// TickInterval is the wall time between physics steps.
func (c PhysicsConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.TickRateHz)
}

type SceneConfig struct {
	Width                  float64 `yaml:"scene_width"`
	WindowWidth            int     `yaml:"window_width"`
	WindowHeight           int     `yaml:"window_height"`
	GridSize               int     `yaml:"grid_size"`
	GridGapPercent         float64 `yaml:"grid_gap_percent"`
	ContainerThickness     float64 `yaml:"container_thickness"`
	ContainerBorderPercent float64 `yaml:"container_border_percent"`
	DepthPercent           float64 `yaml:"scene_depth_percent"`
	ImagePath              string  `yaml:"image"`
	// ImageRatio is used when the image can't be read.
	ImageRatio float64 `yaml:"image_ratio"`
}

type AppConfig struct {
	FrameRate float64 `yaml:"frame_rate"`
	MaxFrames uint64  `yaml:"max_frames"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type DebugFeedConfig struct {
	Listen   string        `yaml:"listen"`
	Interval time.Duration `yaml:"interval"`
}

func DefaultConfig() Config {
	world := physics.DefaultWorldSettings()
	return Config{
		Log: LogConfig{Prefix: "mosaic"},
		Physics: PhysicsConfig{
			Gravity:          world.Gravity,
			FixedTimestep:    physics.DefaultFixedTimestep,
			TickRateHz:       60,
			MaxBacklog:       5,
			AllowSleep:       world.AllowSleep,
			SleepThreshold:   world.SleepThreshold,
			SleepTime:        world.SleepTime,
			ContactMaterials: world.ContactMaterials,
			DefaultContact:   world.DefaultContact,
		},
		Scene: SceneConfig{
			Width:                  50,
			WindowWidth:            1280,
			WindowHeight:           720,
			GridSize:               20,
			GridGapPercent:         0.003,
			ContainerThickness:     0.1,
			ContainerBorderPercent: 0.1,
			DepthPercent:           0.2,
			ImagePath:              "textures/face.png",
			ImageRatio:             1,
		},
		App: AppConfig{FrameRate: 60},
		DebugFeed: DebugFeedConfig{
			Interval: 250 * time.Millisecond,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// falls back to $MOSAIC_CONFIG, then to the defaults alone.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv(ConfigEnv)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if cfg, err = ParseConfig(data); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	p := c.Physics
	switch {
	case !positive(p.FixedTimestep):
		return fmt.Errorf("%w: physics.fixed_timestep must be positive, got %v", ErrInvalidConfig, p.FixedTimestep)
	case !positive(p.TickRateHz):
		return fmt.Errorf("%w: physics.tick_rate_hz must be positive, got %v", ErrInvalidConfig, p.TickRateHz)
	case p.MaxBacklog < 1:
		return fmt.Errorf("%w: physics.max_backlog must be at least 1, got %d", ErrInvalidConfig, p.MaxBacklog)
	}
	for _, cm := range p.ContactMaterials {
		if cm.A == "" || cm.B == "" {
			return fmt.Errorf("%w: contact material needs two material names", ErrInvalidConfig)
		}
		if cm.Friction < 0 || cm.Restitution < 0 {
			return fmt.Errorf("%w: contact material %s/%s has negative coefficients", ErrInvalidConfig, cm.A, cm.B)
		}
	}

	s := c.Scene
	switch {
	case !positive(s.Width):
		return fmt.Errorf("%w: scene.scene_width must be positive", ErrInvalidConfig)
	case s.WindowWidth <= 0 || s.WindowHeight <= 0:
		return fmt.Errorf("%w: scene window size must be positive, got %dx%d", ErrInvalidConfig, s.WindowWidth, s.WindowHeight)
	case s.GridSize < 1:
		return fmt.Errorf("%w: scene.grid_size must be at least 1, got %d", ErrInvalidConfig, s.GridSize)
	case s.GridGapPercent < 0 || s.ContainerBorderPercent < 0 || s.ContainerBorderPercent >= 1:
		return fmt.Errorf("%w: scene percentages out of range", ErrInvalidConfig)
	case !positive(s.ImageRatio):
		return fmt.Errorf("%w: scene.image_ratio must be positive", ErrInvalidConfig)
	}

	if c.App.FrameRate < 0 {
		return fmt.Errorf("%w: app.frame_rate must not be negative", ErrInvalidConfig)
	}
	if c.DebugFeed.Listen != "" && c.DebugFeed.Interval <= 0 {
		return fmt.Errorf("%w: debug_feed.interval must be positive", ErrInvalidConfig)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
