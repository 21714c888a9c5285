package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test data defaults
	if cfg.Data.Base != "zack_and_wiki" {
		t.Errorf("expected base zack_and_wiki, got %s", cfg.Data.Base)
	}
	if cfg.Data.ArchiveExt != ".brres" {
		t.Errorf("expected archive ext .brres, got %s", cfg.Data.ArchiveExt)
	}
	if cfg.Data.MaxConcurrentFetches != 8 {
		t.Errorf("expected 8 concurrent fetches, got %d", cfg.Data.MaxConcurrentFetches)
	}

	// Test graphics defaults
	if cfg.Graphics.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Graphics.Height)
	}
	if cfg.Graphics.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if cfg.Graphics.Antialiasing != AntialiasingFXAA {
		t.Errorf("expected fxaa, got %s", cfg.Graphics.Antialiasing)
	}

	// Test stage and logging defaults
	if cfg.Stage.ID != "STG_00_00" {
		t.Errorf("expected stage STG_00_00, got %s", cfg.Stage.ID)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
data:
  root: "/srv/assets"
  packs: ["base.pak", "patch.pak"]
  remote: "http://assets.local:8090"
  max_concurrent_fetches: 4
  watch: true

stage:
  id: "STG_04_05"

graphics:
  width: 1920
  height: 1080
  fullscreen: true
  antialiasing: none
  clear_color: [0, 0, 0, 1]

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Data.Root != "/srv/assets" {
		t.Errorf("expected root /srv/assets, got %s", cfg.Data.Root)
	}
	if len(cfg.Data.Packs) != 2 || cfg.Data.Packs[1] != "patch.pak" {
		t.Errorf("unexpected packs %v", cfg.Data.Packs)
	}
	if cfg.Data.Remote != "http://assets.local:8090" {
		t.Errorf("unexpected remote %s", cfg.Data.Remote)
	}
	if !cfg.Data.Watch {
		t.Error("expected watch to be true")
	}
	// Unset keys keep their defaults
	if cfg.Data.Base != "zack_and_wiki" {
		t.Errorf("expected base to keep default, got %s", cfg.Data.Base)
	}
	if cfg.Stage.ID != "STG_04_05" {
		t.Errorf("expected stage STG_04_05, got %s", cfg.Stage.ID)
	}
	if cfg.Graphics.Width != 1920 || cfg.Graphics.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
	}
	if cfg.Graphics.Antialiasing != AntialiasingNone {
		t.Errorf("expected antialiasing none, got %s", cfg.Graphics.Antialiasing)
	}
	if cfg.Graphics.ClearColor != [4]float32{0, 0, 0, 1} {
		t.Errorf("unexpected clear color %v", cfg.Graphics.ClearColor)
	}
	if cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("expected log file 'viewer.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	tomlContent := `
[data]
base = "zack_and_wiki"
max_concurrent_fetches = 2

[stage]
id = "STG_07_00"

[graphics]
width = 800
height = 600
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Stage.ID != "STG_07_00" {
		t.Errorf("expected stage STG_07_00, got %s", cfg.Stage.ID)
	}
	if cfg.Data.MaxConcurrentFetches != 2 {
		t.Errorf("expected 2 concurrent fetches, got %d", cfg.Data.MaxConcurrentFetches)
	}
	if cfg.Graphics.Width != 800 || cfg.Graphics.Height != 600 {
		t.Errorf("expected 800x600, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
graphics:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := Default()
			cfg.Stage.ID = "STG_09_02"
			cfg.Data.Packs = []string{"a.pak"}
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("failed to save: %v", err)
			}

			loaded := &Config{}
			if err := loadFromFile(loaded, path); err != nil {
				t.Fatalf("failed to reload: %v", err)
			}
			if loaded.Stage.ID != "STG_09_02" {
				t.Errorf("expected stage STG_09_02, got %s", loaded.Stage.ID)
			}
			if len(loaded.Data.Packs) != 1 || loaded.Data.Packs[0] != "a.pak" {
				t.Errorf("unexpected packs %v", loaded.Data.Packs)
			}
			if loaded.Graphics.Width != 1280 {
				t.Errorf("expected width 1280, got %d", loaded.Graphics.Width)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero width", func(c *Config) { c.Graphics.Width = 0 }},
		{"unknown antialiasing", func(c *Config) { c.Graphics.Antialiasing = "msaa" }},
		{"negative fetches", func(c *Config) { c.Data.MaxConcurrentFetches = -1 }},
		{"empty base", func(c *Config) { c.Data.Base = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[graphics]\nwidth = 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path != "./config.toml" {
		t.Errorf("expected to find ./config.toml, got %q", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "stage flag",
			setup: func() { *flagStage = "STG_08_01" },
			verify: func(cfg *Config) {
				if cfg.Stage.ID != "STG_08_01" {
					t.Errorf("expected stage STG_08_01, got %s", cfg.Stage.ID)
				}
			},
			teardown: func() { *flagStage = "" },
		},
		{
			name: "data and remote flags",
			setup: func() {
				*flagData = "/mnt/dump"
				*flagRemote = "http://127.0.0.1:8090"
			},
			verify: func(cfg *Config) {
				if cfg.Data.Root != "/mnt/dump" {
					t.Errorf("expected root /mnt/dump, got %s", cfg.Data.Root)
				}
				if cfg.Data.Remote != "http://127.0.0.1:8090" {
					t.Errorf("unexpected remote %s", cfg.Data.Remote)
				}
			},
			teardown: func() {
				*flagData = ""
				*flagRemote = ""
			},
		},
		{
			name:  "addr flag",
			setup: func() { *flagAddr = ":9000" },
			verify: func(cfg *Config) {
				if cfg.Server.Addr != ":9000" {
					t.Errorf("expected addr :9000, got %s", cfg.Server.Addr)
				}
			},
			teardown: func() { *flagAddr = "" },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(cfg *Config) {
				if !cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Graphics.Width != 2560 || cfg.Graphics.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
graphics:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Graphics.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Graphics.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Graphics.Height)
	}
}
