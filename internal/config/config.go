package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Template source constants
	SourceFile  = "file"
	SourceStore = "store"

	// Default values
	DefaultLogLevel    = "info"
	DefaultFlavor      = ""
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
)

// Config holds all configuration for the harvest CLI
type Config struct {
	// Template source configuration
	TemplateSource string // "file" or "store"
	TemplatePath   string // JSON template file (file source)
	TemplateName   string // template name in the store (store source)
	StorePath      string // sqlite template store path (store source)

	// Document configuration
	DocumentPath string
	MaxFileSize  int64 // Maximum PDF file size in bytes

	// Output configuration
	OutputPath string // empty means stdout

	// Application configuration
	Version  string
	Flavor   string // extraction flavor override, empty keeps the template's
	LogLevel string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TemplateSource: SourceFile,
		Version:        "1.0.0",
		Flavor:         DefaultFlavor,
		LogLevel:       DefaultLogLevel,
		MaxFileSize:    DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.DocumentPath != "" {
		if expandedPath, err := filepath.Abs(cfg.DocumentPath); err == nil {
			cfg.DocumentPath = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("PDFHARVEST")
	viper.AutomaticEnv()

	viper.SetDefault("source", cfg.TemplateSource)
	viper.SetDefault("template", cfg.TemplatePath)
	viper.SetDefault("name", cfg.TemplateName)
	viper.SetDefault("store", cfg.StorePath)
	viper.SetDefault("document", cfg.DocumentPath)
	viper.SetDefault("output", cfg.OutputPath)
	viper.SetDefault("flavor", cfg.Flavor)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("source", cfg.TemplateSource, "Template source: 'file' for a JSON template, 'store' for the sqlite store")
	pflag.String("template", cfg.TemplatePath, "Path to a JSON template file (file source)")
	pflag.String("name", cfg.TemplateName, "Template name in the store (store source)")
	pflag.String("store", cfg.StorePath, "Path to the sqlite template store (store source)")
	pflag.String("document", cfg.DocumentPath, "Path to the PDF document to harvest")
	pflag.String("output", cfg.OutputPath, "Output file for the serialized text (default stdout)")
	pflag.String("flavor", cfg.Flavor, "Extraction flavor override (stream, lattice); empty keeps the template's")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("source", pflag.Lookup("source"))
	_ = viper.BindPFlag("template", pflag.Lookup("template"))
	_ = viper.BindPFlag("name", pflag.Lookup("name"))
	_ = viper.BindPFlag("store", pflag.Lookup("store"))
	_ = viper.BindPFlag("document", pflag.Lookup("document"))
	_ = viper.BindPFlag("output", pflag.Lookup("output"))
	_ = viper.BindPFlag("flavor", pflag.Lookup("flavor"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\npdfharvest - template-driven invoice table extraction\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --template=acme.json --document=inv.pdf            # template from file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --source=store --store=templates.db --name=acme \\\n"+
			"      --document=inv.pdf --output=inv.txt                    # template from store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_SOURCE      Template source\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_TEMPLATE    Template file path\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_NAME        Template name in the store\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_STORE       Template store path\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_DOCUMENT    Document path\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_OUTPUT      Output file path\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_FLAVOR      Extraction flavor override\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  PDFHARVEST_MAXFILESIZE Maximum file size\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.TemplateSource = viper.GetString("source")
	cfg.TemplatePath = viper.GetString("template")
	cfg.TemplateName = viper.GetString("name")
	cfg.StorePath = viper.GetString("store")
	cfg.DocumentPath = viper.GetString("document")
	cfg.OutputPath = viper.GetString("output")
	cfg.Flavor = viper.GetString("flavor")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.TemplateSource {
	case SourceFile:
		if c.TemplatePath == "" {
			return errors.New("template path cannot be empty with the file source")
		}
	case SourceStore:
		if c.StorePath == "" {
			return errors.New("store path cannot be empty with the store source")
		}
		if c.TemplateName == "" {
			return errors.New("template name cannot be empty with the store source")
		}
	default:
		return errors.New("source must be either 'file' or 'store'")
	}

	if c.DocumentPath == "" {
		return errors.New("document path cannot be empty")
	}

	if c.Flavor != "" && c.Flavor != "stream" && c.Flavor != "lattice" {
		return fmt.Errorf("invalid flavor: %s (must be one of: stream, lattice)", c.Flavor)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Source: %s, Template: %s, Name: %s, Store: %s, Document: %s, Output: %s, LogLevel: %s, MaxFileSize: %d}",
		c.TemplateSource, c.TemplatePath, c.TemplateName, c.StorePath, c.DocumentPath, c.OutputPath, c.LogLevel, c.MaxFileSize)
}
