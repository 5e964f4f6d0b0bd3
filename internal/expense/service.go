package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/zombor/spendmate-ocr/internal/parsing"
	"github.com/zombor/spendmate-ocr/internal/scanning"
)

// ErrHistoryDisabled is returned by history lookups when no store is configured
var ErrHistoryDisabled = errors.New("scan history is disabled")

// Recognizer turns an uploaded image into engine lines
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, contentType string) (*scanning.Recognition, error)
	// Engines names the configured primary and fallback engines. An
	// unconfigured engine is reported as "".
	Engines() (primary, fallback string)
}

// IDGenerator generates unique IDs for scans
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates time ordered UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs a scan end to end
type Service struct {
	recognizer  Recognizer
	parser      *parsing.Parser
	storage     Storage
	history     History
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service. storage and history may be nil, which
// disables saving uploads and the scan history.
func NewService(recognizer Recognizer, parser *parsing.Parser, storage Storage, history History) *Service {
	return NewServiceWithDeps(recognizer, parser, storage, history, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(recognizer Recognizer, parser *parsing.Parser, storage Storage, history History, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		recognizer:  recognizer,
		parser:      parser,
		storage:     storage,
		history:     history,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Engines reports the configured engine names
func (s *Service) Engines() (primary, fallback string) {
	return s.recognizer.Engines()
}

// HistoryEnabled reports whether scans are recorded
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// sanitizeFilename strips everything but letters, digits, spaces, hyphens and
// underscores from the base name and caps it at 50 characters
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	base = strings.Join(strings.Fields(b.String()), " ")

	if runes := []rune(base); len(runes) > 50 {
		base = strings.TrimSpace(string(runes[:50]))
	}
	if base == "" {
		base = "upload"
	}
	if ext != "" && strings.ContainsFunc(ext[1:], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		ext = ""
	}

	return base + ext
}

// Scan recognizes an uploaded image and extracts its expense fields
func (s *Service) Scan(ctx context.Context, filename string, data []byte, contentType string) (*Result, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	var storedFile string
	if s.storage != nil {
		name, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
		if err != nil {
			slog.Warn("Failed to save upload", "scan_id", id, "filename", filename, "error", err)
		} else {
			storedFile = name
		}
	}

	rec, err := s.recognizer.Recognize(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to recognize upload",
			"scan_id", id,
			"filename", filename,
			"content_type", contentType,
			"size", len(data),
			"error", err)
		return nil, fmt.Errorf("recognizing %s: %w", filename, err)
	}

	doc := s.parser.Normalize(rec.EngineUsed, rec.Lines)
	doc.Source = s.parser.Classify(doc.Lines)
	fields := s.parser.Extract(doc)
	result := Assemble(id, doc, fields, rec, s.parser.RedactAccounts)

	slog.Info("Scan complete",
		"scan_id", id,
		"engine", rec.EngineName,
		"engine_used", rec.EngineUsed,
		"source", fields.Source,
		"lines", len(doc.Lines))

	if s.history != nil {
		record := &ScanRecord{
			ID:          id,
			Filename:    filename,
			StoredFile:  storedFile,
			ContentType: contentType,
			Result:      result,
			CreatedAt:   now,
		}
		if err := s.history.SaveScan(record); err != nil {
			slog.Warn("Failed to record scan", "scan_id", id, "error", err)
		}
	}

	return result, nil
}

// GetScan retrieves a past scan
func (s *Service) GetScan(id string) (*ScanRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	record, err := s.history.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return record, nil
}

// ListScans returns recent scans, newest first
func (s *Service) ListScans(limit int) ([]*ScanRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	records, err := s.history.ListScans(limit)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return records, nil
}

// GetScanFile returns the saved upload of a past scan
func (s *Service) GetScanFile(id string) ([]byte, string, error) {
	record, err := s.GetScan(id)
	if err != nil {
		return nil, "", err
	}
	if s.storage == nil || record.StoredFile == "" {
		return nil, "", fmt.Errorf("%w: no upload saved for %s", ErrScanNotFound, id)
	}
	data, err := s.storage.Get(record.StoredFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting upload: %w", err)
	}
	return data, record.ContentType, nil
}
