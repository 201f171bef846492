package output

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONWriter writes output in JSON format.
type JSONWriter struct {
	mu     sync.Mutex
	writer io.Writer
	pretty bool
	stream bool
	closed bool
}

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter(w io.Writer, pretty, stream bool) *JSONWriter {
	return &JSONWriter{
		writer: w,
		pretty: pretty,
		stream: stream,
	}
}

// WriteResult writes the complete crawl result.
func (j *JSONWriter) WriteResult(result *CrawlResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	return j.write(result)
}

// WritePage writes a single page record in streaming mode.
func (j *JSONWriter) WritePage(page *PageRecord) error {
	if !j.stream {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	return j.write(StreamEvent{Type: "page", Data: page})
}

// WriteError writes an error record in streaming mode.
func (j *JSONWriter) WriteError(rec *ErrorRecord) error {
	if !j.stream {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	return j.write(StreamEvent{Type: "error", Data: rec})
}

func (j *JSONWriter) write(v interface{}) error {
	var data []byte
	var err error

	if j.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	if _, err = j.writer.Write(data); err != nil {
		return err
	}
	_, err = j.writer.Write([]byte("\n"))
	return err
}

// Flush flushes the writer.
func (j *JSONWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close closes the writer.
func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true

	if closer, ok := j.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// StreamEvent represents a streaming output event.
type StreamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
