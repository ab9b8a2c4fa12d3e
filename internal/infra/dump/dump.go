package dump

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
)

// Uploader stores a copy of the dump somewhere other than the local disk.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

// Writer persists the last raw apps response for debugging.
type Writer struct {
	fs        afero.Fs
	path      string
	uploader  Uploader
	uploadKey string
	logger    *slog.Logger
}

func NewWriter(fs afero.Fs, path string, logger *slog.Logger) *Writer {
	return &Writer{fs: fs, path: path, logger: logger}
}

// WithUploader mirrors every written dump to uploader under key.
func (w *Writer) WithUploader(uploader Uploader, key string) *Writer {
	w.uploader = uploader
	w.uploadKey = key
	return w
}

// Write re-indents raw JSON with four spaces; bytes that are not valid JSON
// are written as-is.
func (w *Writer) Write(ctx context.Context, raw []byte) error {
	body := Indent(raw)

	if err := afero.WriteFile(w.fs, w.path, body, 0o644); err != nil {
		return fmt.Errorf("write dump %s: %w", w.path, err)
	}
	w.logger.InfoContext(ctx, "full API response written", "path", w.path, "bytes", len(body))

	if w.uploader == nil {
		return nil
	}
	if err := w.uploader.Upload(ctx, w.uploadKey, body); err != nil {
		return fmt.Errorf("upload dump %s: %w", w.uploadKey, err)
	}
	w.logger.InfoContext(ctx, "dump uploaded", "key", w.uploadKey)
	return nil
}

func Indent(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return raw
	}
	return buf.Bytes()
}
