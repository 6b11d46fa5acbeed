package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TemplateSource != SourceFile {
		t.Errorf("Expected default source to be 'file', got '%s'", cfg.TemplateSource)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	if cfg.Flavor != "" {
		t.Errorf("Expected default flavor to be empty, got '%s'", cfg.Flavor)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			TemplateSource: SourceFile,
			TemplatePath:   "acme.json",
			DocumentPath:   "/tmp/inv.pdf",
			LogLevel:       "info",
			MaxFileSize:    1024,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid file source",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "valid store source",
			mutate: func(c *Config) {
				c.TemplateSource = SourceStore
				c.TemplatePath = ""
				c.StorePath = "templates.db"
				c.TemplateName = "acme"
			},
			wantErr: false,
		},
		{
			name:    "invalid source",
			mutate:  func(c *Config) { c.TemplateSource = "http" },
			wantErr: true,
		},
		{
			name:    "file source without template path",
			mutate:  func(c *Config) { c.TemplatePath = "" },
			wantErr: true,
		},
		{
			name: "store source without name",
			mutate: func(c *Config) {
				c.TemplateSource = SourceStore
				c.StorePath = "templates.db"
			},
			wantErr: true,
		},
		{
			name:    "missing document",
			mutate:  func(c *Config) { c.DocumentPath = "" },
			wantErr: true,
		},
		{
			name:    "valid flavor override",
			mutate:  func(c *Config) { c.Flavor = "lattice" },
			wantErr: false,
		},
		{
			name:    "invalid flavor",
			mutate:  func(c *Config) { c.Flavor = "grid" },
			wantErr: true,
		},
		{
			name:    "non-positive max file size",
			mutate:  func(c *Config) { c.MaxFileSize = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "trace" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
