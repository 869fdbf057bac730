package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spotauth.db" {
			t.Errorf("expected database path ./spotauth.db, got %s", config.Database.Path)
		}

		if config.Database.Driver != "sqlite" {
			t.Errorf("expected sqlite driver, got %s", config.Database.Driver)
		}

		if config.Server.Port != 9090 {
			t.Errorf("expected server port 9090, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Credentials.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("unexpected token url %s", config.Credentials.Spotify.TokenURL)
		}

		if config.HTTP.Timeout.Duration != 30*time.Second {
			t.Errorf("expected 30s http timeout, got %v", config.HTTP.Timeout.Duration)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
driver = "toml"
path = "/custom/record.toml"

[server]
host = "0.0.0.0"
port = 8080

[http]
timeout = "5s"

[credentials.spotify]
client_id = "test_client_id"
redirect_uri = "http://localhost:4000/cb"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Driver != "toml" {
			t.Errorf("expected toml driver, got %s", config.Database.Driver)
		}

		if config.Database.Path != "/custom/record.toml" {
			t.Errorf("expected database path /custom/record.toml, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.HTTP.Timeout.Duration != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", config.HTTP.Timeout.Duration)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Credentials.Spotify.AuthURL != "https://accounts.spotify.com/authorize" {
			t.Errorf("expected auth url to keep its default, got %s", config.Credentials.Spotify.AuthURL)
		}
	})

	t.Run("LoadConfig Invalid Duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[http]\ntimeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error for invalid duration")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tt := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "missing client id", mutate: func(c *Config) { c.Credentials.Spotify.ClientID = "" }},
			{name: "bad redirect uri", mutate: func(c *Config) { c.Credentials.Spotify.RedirectURI = "not a url" }},
			{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "postgres" }},
			{name: "sqlite without path", mutate: func(c *Config) { c.Database.Path = "" }},
			{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				config := DefaultConfig()
				tc.mutate(config)

				err := config.Validate()
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}

		t.Run("memory driver without path", func(t *testing.T) {
			config := DefaultConfig()
			config.Database.Driver = "memory"
			config.Database.Path = ""

			if err := config.Validate(); err != nil {
				t.Errorf("memory driver should not need a path: %v", err)
			}
		})
	})

	t.Run("CallbackAddr", func(t *testing.T) {
		tt := []struct {
			uri      string
			wantAddr string
			wantPath string
		}{
			{uri: "http://127.0.0.1:3000/callback", wantAddr: "127.0.0.1:3000", wantPath: "/callback"},
			{uri: "http://localhost/", wantAddr: "localhost:80", wantPath: "/"},
			{uri: "https://example.com", wantAddr: "example.com:443", wantPath: "/"},
		}

		for _, tc := range tt {
			t.Run(tc.uri, func(t *testing.T) {
				s := SpotifyConfig{RedirectURI: tc.uri}
				addr, err := s.CallbackAddr()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if addr != tc.wantAddr {
					t.Errorf("CallbackAddr() = %s, want %s", addr, tc.wantAddr)
				}
				if got := s.CallbackPath(); got != tc.wantPath {
					t.Errorf("CallbackPath() = %s, want %s", got, tc.wantPath)
				}
			})
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	for _, name := range []string{"", "info", "debug", "warn", "error", "WARNING"} {
		if _, err := ParseLogLevel(name); err != nil {
			t.Errorf("ParseLogLevel(%q) unexpected error: %v", name, err)
		}
	}

	if _, err := ParseLogLevel("verbose"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGenerateState(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		state, err := GenerateState()
		if err != nil {
			t.Fatalf("GenerateState() error = %v", err)
		}
		if len(state) != 32 {
			t.Errorf("expected 32 hex characters, got %d", len(state))
		}
		if seen[state] {
			t.Fatalf("duplicate state %s", state)
		}
		seen[state] = true
	}
}
