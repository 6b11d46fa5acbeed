package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/cache"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/config"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/engine"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/extraction"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/harvest"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/serialize"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/template"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
)

// setupLogging configures the process logger
func setupLogging(cfg *config.Config) {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !cfg.IsDebug() {
		log.SetFlags(log.LstdFlags)
	}
}

// loadTemplate resolves the template from the configured source
func loadTemplate(cfg *config.Config) (*template.Template, error) {
	if cfg.TemplateSource == config.SourceStore {
		store, err := template.OpenStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("opening template store: %w", err)
		}
		defer store.Close()
		return store.LoadTemplate(cfg.TemplateName)
	}

	tpl, err := template.Load(cfg.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}
	return tpl, nil
}

// writeOutput emits the serialized text to the configured destination
func writeOutput(cfg *config.Config, text string) error {
	if cfg.OutputPath == "" {
		_, err := os.Stdout.WriteString(text)
		return err
	}
	return os.WriteFile(cfg.OutputPath, []byte(text), 0o600)
}

func run() error {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if cfg.IsDebug() {
		log.Printf("pdfharvest %s (built %s)", version, buildTime)
		log.Printf("Configuration: %s", cfg)
	}

	tpl, err := loadTemplate(cfg)
	if err != nil {
		return err
	}
	if cfg.Flavor != "" {
		tpl.Params.Flavor = cfg.Flavor
		tpl.Params.Sections = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		log.Printf("Received signal: %s, finishing current page", sig)
		cancel()
	}()

	logger := log.Default()
	harvester := harvest.New(
		harvest.FileOpener{MaxFileSize: cfg.MaxFileSize},
		extraction.NewAdapter(engine.New(), logger),
		cache.New(),
		logger,
	)

	result, err := harvester.Run(ctx, tpl, cfg.DocumentPath)
	if err != nil {
		return fmt.Errorf("harvesting %s: %w", cfg.DocumentPath, err)
	}
	for section, status := range result.Status.Sections {
		if status != extraction.StatusSuccess {
			log.Printf("Section %s: %s", section, status)
		}
	}

	text := serialize.Serialize(result, []serialize.MetadataEntry{
		{Key: "document", Value: result.DocumentPath},
		{Key: "template", Value: tpl.Name},
		{Key: "pages", Value: fmt.Sprintf("%d", result.PageCount)},
		{Key: "status", Value: string(result.Status.Overall)},
	})
	return writeOutput(cfg, text)
}

func main() {
	if err := run(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("pdfharvest: %v", err)
	}
}
