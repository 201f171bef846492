// Package output serializes crawl results, either streamed page by
// page or as one final document.
package output

import (
	"io"
)

// Writer defines the interface for output writers.
type Writer interface {
	// WriteResult writes the complete crawl result
	WriteResult(result *CrawlResult) error

	// WritePage writes a single page record (for streaming)
	WritePage(page *PageRecord) error

	// WriteError writes an error record (for streaming)
	WriteError(rec *ErrorRecord) error

	// Flush flushes any buffered output
	Flush() error

	// Close closes the writer
	Close() error
}

// Config holds output configuration.
type Config struct {
	Format   string
	Pretty   bool
	Stream   bool
	FilePath string
}

// NewWriter creates an output writer for the configured format.
func NewWriter(w io.Writer, config Config) Writer {
	switch config.Format {
	case "json":
		return NewJSONWriter(w, config.Pretty, config.Stream)
	default:
		return NewJSONWriter(w, config.Pretty, config.Stream)
	}
}
