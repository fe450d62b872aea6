// Package etl loads regulation-text corpora (CSV, JSON lines, or
// Parquet) into the similarity search index.
package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/regsearch"
)

// Loader reads corpus files and indexes their excerpts.
type Loader struct {
	service *regsearch.Service
	store   *regsearch.Store
	config  *Config
	logger  *zap.Logger
}

// NewLoader creates a corpus loader.
func NewLoader(service *regsearch.Service, store *regsearch.Store, cfg *Config, logger *zap.Logger) *Loader {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Loader{service: service, store: store, config: cfg, logger: logger}
}

// LoadFile reads one corpus file and indexes every valid excerpt.
func (l *Loader) LoadFile(ctx context.Context, filePath string) (*LoadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	format := DetectFileFormat(filePath)
	l.logger.Info("Starting corpus load",
		zap.String("file", filePath),
		zap.String("format", string(format)),
		zap.Int("batch_size", l.config.BatchSize))

	start := time.Now()
	result := &LoadResult{}

	var err error
	switch format {
	case FormatCSV:
		err = l.loadCSV(ctx, filePath, result)
	case FormatParquet:
		err = l.loadParquet(ctx, filePath, result)
	case FormatJSON:
		err = l.loadJSON(ctx, filePath, result)
	default:
		err = fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return result, err
	}

	result.Duration = time.Since(start)

	if l.config.CreateIndex && result.Indexed > 1000 {
		indexStart := time.Now()
		if err := l.store.CreateIndex(ctx); err != nil {
			l.logger.Warn("Failed to create vector index", zap.Error(err))
		} else {
			l.logger.Info("Vector index created",
				zap.Duration("duration", time.Since(indexStart)))
		}
	}

	l.logger.Info("Corpus load completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("indexed", result.Indexed),
		zap.Int64("skipped", result.Skipped),
		zap.Int64("failed", result.Failed),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("database_time", result.DatabaseTime))

	return result, nil
}

func (l *Loader) loadCSV(ctx context.Context, filePath string, result *LoadResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 3 // regulation, article, text

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	l.logger.Info("CSV header detected", zap.Strings("columns", header))

	return l.consume(ctx, func() (*ExcerptRecord, error) {
		row, err := reader.Read()
		if err != nil {
			return nil, err
		}
		if len(row) != 3 {
			return nil, errSkipRecord
		}
		return &ExcerptRecord{
			Regulation: strings.TrimSpace(row[0]),
			Article:    strings.TrimSpace(row[1]),
			Text:       strings.TrimSpace(row[2]),
		}, nil
	}, result)
}

func (l *Loader) loadParquet(ctx context.Context, filePath string, result *LoadResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return l.consume(ctx, func() (*ExcerptRecord, error) {
		var record ExcerptRecord
		if err := reader.Read(&record); err != nil {
			return nil, err
		}
		return &record, nil
	}, result)
}

func (l *Loader) loadJSON(ctx context.Context, filePath string, result *LoadResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return l.consume(ctx, func() (*ExcerptRecord, error) {
		var record ExcerptRecord
		if err := decoder.Decode(&record); err != nil {
			return nil, err
		}
		return &record, nil
	}, result)
}

var errSkipRecord = fmt.Errorf("skip record")

func (l *Loader) consume(ctx context.Context, next func() (*ExcerptRecord, error), result *LoadResult) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := next()
		if err == io.EOF {
			return nil
		}
		if err == errSkipRecord {
			result.TotalRecords++
			result.Skipped++
			continue
		}
		if err != nil {
			l.logger.Warn("Failed to read record", zap.Error(err))
			result.TotalRecords++
			result.Failed++
			continue
		}

		result.TotalRecords++
		if !l.validate(record) {
			result.Skipped++
			continue
		}

		dbStart := time.Now()
		err = l.service.Index(ctx, &regsearch.Excerpt{
			Regulation: record.Regulation,
			Article:    record.Article,
			Text:       record.Text,
		})
		result.DatabaseTime += time.Since(dbStart)
		if err != nil {
			l.logger.Warn("Failed to index excerpt",
				zap.String("article", record.Article), zap.Error(err))
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Indexed++

		if l.config.ProgressReport > 0 && result.TotalRecords%int64(l.config.ProgressReport) == 0 {
			l.logger.Info("Load progress",
				zap.Int64("records", result.TotalRecords),
				zap.Int64("indexed", result.Indexed),
				zap.Int64("failed", result.Failed))
		}
	}
}

func (l *Loader) validate(record *ExcerptRecord) bool {
	if !l.config.ValidateData {
		return true
	}
	if strings.TrimSpace(record.Text) == "" {
		l.logger.Debug("Invalid record: empty text")
		return false
	}
	if _, ok := entity.ParseRegulation(record.Regulation); !ok {
		l.logger.Debug("Invalid record: unknown regulation",
			zap.String("regulation", record.Regulation))
		return false
	}
	if len(record.Text) > 10000 {
		l.logger.Debug("Invalid record: text too long",
			zap.Int("length", len(record.Text)))
		return false
	}
	return true
}
