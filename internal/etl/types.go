package etl

import (
	"strings"
	"time"
)

// ExcerptRecord is a single regulation-text fragment from an input
// corpus file.
type ExcerptRecord struct {
	Regulation string `csv:"regulation" parquet:"regulation" json:"regulation"`
	Article    string `csv:"article" parquet:"article" json:"article"`
	Text       string `csv:"text" parquet:"text" json:"text"`
}

// LoadResult summarizes one corpus load.
type LoadResult struct {
	TotalRecords  int64         `json:"total_records"`
	Indexed       int64         `json:"indexed"`
	Skipped       int64         `json:"skipped"`
	Failed        int64         `json:"failed"`
	Duration      time.Duration `json:"duration"`
	EmbeddingTime time.Duration `json:"embedding_time"`
	DatabaseTime  time.Duration `json:"database_time"`
	Errors        []string      `json:"errors,omitempty"`
}

// Config contains corpus loader configuration.
type Config struct {
	BatchSize      int  `yaml:"batch_size" mapstructure:"batch_size"`
	ValidateData   bool `yaml:"validate_data" mapstructure:"validate_data"`
	CreateIndex    bool `yaml:"create_index" mapstructure:"create_index"`
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"`
}

// DefaultConfig returns loader defaults suitable for regulation corpora.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      500,
		ValidateData:   true,
		CreateIndex:    true,
		ProgressReport: 1000,
	}
}

// FileFormat names a supported corpus file format.
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension.
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	case strings.HasSuffix(filename, ".json"), strings.HasSuffix(filename, ".jsonl"):
		return FormatJSON
	default:
		return FormatCSV
	}
}
