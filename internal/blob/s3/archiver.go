package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/questlab/engagehub/internal/domain"
)

// Archiver implements domain.Archiver by serializing the records the quota
// ladder is about to discard to JSONL and uploading them to cold storage.
// Archival is best effort: an upload failure only costs the cold copy,
// never the save that triggered it.
type Archiver struct {
	writer *Writer
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates an Archiver uploading through the given writer.
func NewArchiver(writer *Writer, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		logger: logger.With(slog.String("component", "archiver")),
		now:    time.Now,
	}
}

// Archive serializes records as JSONL and uploads them to
// archive/{kind}/{timestamp}.jsonl.
func (a *Archiver) Archive(ctx context.Context, kind string, records any) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}
	if len(buf) == 0 {
		return nil
	}

	path := archivePath(kind, a.now())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}

	a.logger.InfoContext(ctx, "records archived",
		slog.String("kind", kind),
		slog.String("path", path),
		slog.Int("bytes", len(buf)),
	)
	return nil
}

// archivePath builds the object key for one archive upload. Timestamped to
// the second so repeated trims on the same day never overwrite each other.
func archivePath(kind string, at time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, at.UTC().Format("2006-01-02T150405Z"))
}

// marshalJSONL serializes a value as newline-delimited JSON: slices become
// one compact line per element, any other value a single line.
func marshalJSONL(records any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	switch recs := records.(type) {
	case []domain.Notification:
		for i, r := range recs {
			if err := enc.Encode(r); err != nil {
				return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
			}
		}
	case []domain.UserCase:
		for i, r := range recs {
			if err := enc.Encode(r); err != nil {
				return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
			}
		}
	default:
		if err := enc.Encode(records); err != nil {
			return nil, fmt.Errorf("jsonl encode: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
