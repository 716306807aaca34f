package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/extract"
	"github.com/joseph-ayodele/docparser/internal/llm/openai"
	"github.com/joseph-ayodele/docparser/internal/ocr"
	"github.com/joseph-ayodele/docparser/internal/ocr/azurecv"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
	"github.com/joseph-ayodele/docparser/internal/repository"
)

func storeConfig(c *common.Config) repository.Config {
	s := c.Store
	return repository.Config{
		Backend:          s.Backend,
		DSN:              s.DSN,
		SQLitePath:       s.SQLitePath,
		MaxConns:         s.MaxConns,
		MinConns:         s.MinConns,
		MaxConnLifetime:  s.MaxConnLifetime,
		MaxConnIdleTime:  s.MaxConnIdleTime,
		DialTimeout:      s.DialTimeout,
		StatementTimeout: s.StatementTimeout,
		Redis: repository.RedisConfig{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
			TTL:      s.RedisTTL,
		},
	}
}

func openStore(ctx context.Context, c *common.Config) (repository.Store, error) {
	return repository.Open(ctx, storeConfig(c), logger)
}

// newExtractor routes PDFs through the local poppler/tesseract engine and
// images through either tesseract or Azure, depending on OCR_BACKEND.
func newExtractor(c *common.Config) (*extract.Router, error) {
	engine := ocr.NewEngine(ocr.Config{
		TesseractLang: c.OCR.TesseractLang,
		DPI:           c.OCR.DPI,
		MaxPages:      c.OCR.MaxPages,
		TessdataDir:   c.OCR.TessdataDir,
		HeicConverter: c.OCR.HeicConverter,
	}, logger)

	var images extract.ImageOCR = engine
	if c.OCR.Backend == "azure" {
		client, err := azurecv.New(azurecv.Config{
			Endpoint: c.OCR.AzureEndpoint,
			Key:      c.OCR.AzureKey,
			Language: c.OCR.AzureLanguage,
			Enhance:  c.OCR.AzureEnhance,
		}, logger)
		if err != nil {
			return nil, err
		}
		images = client
	}
	return extract.NewRouter(images, engine, extract.Options{PageWorkers: c.Pipeline.PageWorkers}, logger), nil
}

func newOrchestrator(c *common.Config) (*pipeline.Orchestrator, error) {
	if err := c.RequireLLM(); err != nil {
		return nil, err
	}
	ex, err := newExtractor(c)
	if err != nil {
		return nil, err
	}
	norm := openai.NewClient(openai.Config{
		APIKey:            c.LLM.APIKey,
		BaseURL:           c.LLM.BaseURL,
		Model:             c.LLM.Model,
		Temperature:       c.LLM.Temperature,
		Timeout:           c.LLM.Timeout,
		RequestsPerSecond: c.LLM.RequestsPerSecond,
	}, logger)
	return pipeline.New(ex, norm, pipeline.Options{MaxRetries: c.Pipeline.MaxRetries}, logger), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
