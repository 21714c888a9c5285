// Package config handles viewer configuration loading and management.
package config

// Config holds all viewer settings.
type Config struct {
	Data     DataConfig     `yaml:"data" toml:"data"`
	Stage    StageConfig    `yaml:"stage" toml:"stage"`
	Graphics GraphicsConfig `yaml:"graphics" toml:"graphics"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// DataConfig says where stage assets come from. Sources are consulted in the
// order packs, root directory, remote.
type DataConfig struct {
	Root                 string   `yaml:"root" toml:"root"`                                     // Directory holding the asset tree
	Base                 string   `yaml:"base" toml:"base"`                                     // Game directory inside the asset tree
	ArchiveExt           string   `yaml:"archive_ext" toml:"archive_ext"`                       // Extension of model archives
	Packs                []string `yaml:"packs" toml:"packs"`                                   // Pack files, later entries shadow earlier ones
	Remote               string   `yaml:"remote" toml:"remote"`                                 // Base URL of an asset server
	MaxConcurrentFetches int      `yaml:"max_concurrent_fetches" toml:"max_concurrent_fetches"` // 0 means one fetch per object
	CacheMB              int      `yaml:"cache_mb" toml:"cache_mb"`
	Watch                bool     `yaml:"watch" toml:"watch"` // Reload the stage when files under Root change
}

// StageConfig selects the stage to open.
type StageConfig struct {
	ID string `yaml:"id" toml:"id"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width        int        `yaml:"width" toml:"width"`
	Height       int        `yaml:"height" toml:"height"`
	Fullscreen   bool       `yaml:"fullscreen" toml:"fullscreen"`
	VSync        bool       `yaml:"vsync" toml:"vsync"`
	FPSLimit     int        `yaml:"fps_limit" toml:"fps_limit"`
	Antialiasing string     `yaml:"antialiasing" toml:"antialiasing"` // "fxaa" or "none"
	ClearColor   [4]float32 `yaml:"clear_color" toml:"clear_color"`
}

// ServerConfig holds asset server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
	JSON    bool   `yaml:"json" toml:"json"`
}

// Antialiasing modes.
const (
	AntialiasingFXAA = "fxaa"
	AntialiasingNone = "none"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Root:                 "data",
			Base:                 "zack_and_wiki",
			ArchiveExt:           ".brres",
			MaxConcurrentFetches: 8,
			CacheMB:              256,
		},
		Stage: StageConfig{
			ID: "STG_00_00",
		},
		Graphics: GraphicsConfig{
			Width:        1280,
			Height:       720,
			Fullscreen:   false,
			VSync:        true,
			Antialiasing: AntialiasingFXAA,
			ClearColor:   [4]float32{0.1, 0.1, 0.12, 1},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8090",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
