package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/serdark/receipt-recon/internal/extraction"
)

// ModeCompare runs both engines and reconciles their normalized records.
// The other valid modes are the engine names themselves.
const ModeCompare = "compare"

// IDGenerator generates unique IDs for analyses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service orchestrates the receipt pipeline: store the upload, run the
// selected engine(s), normalize their output, reconcile in compare mode, and
// persist the result. Left and right fix the comparison orientation.
type Service struct {
	db          DB
	storage     Storage
	left        extraction.Engine
	right       extraction.Engine
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, storage Storage, left, right extraction.Engine) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		left:        left,
		right:       right,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, left, right extraction.Engine, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		left:        left,
		right:       right,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Keep only alphanumeric, spaces, hyphens, and underscores
	base = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`).ReplaceAllString(base, "")
	base = regexp.MustCompile(`\s+`).ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Truncate phone-generated long filenames
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ProcessReceipt stores an uploaded receipt, runs the requested mode against
// it, and persists the resulting analysis. Mode is either an engine name for
// single-engine extraction or ModeCompare for a two-engine diff.
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType, mode string) (*Analysis, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)
	storedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	analysis := &Analysis{
		ID:          id,
		Filename:    storedPath,
		ContentType: contentType,
		Mode:        mode,
		CreatedAt:   now,
	}

	switch mode {
	case s.left.Name(), s.right.Name():
		engine := s.left
		if mode == s.right.Name() {
			engine = s.right
		}
		record, err := s.runEngine(ctx, engine, data, contentType)
		if err != nil {
			s.discard(storedPath)
			return nil, err
		}
		analysis.Records = []*Record{record}
	case ModeCompare:
		leftRecord, rightRecord, err := s.runBoth(ctx, data, contentType)
		if err != nil {
			s.discard(storedPath)
			return nil, err
		}
		analysis.Records = []*Record{leftRecord, rightRecord}
		analysis.Diff = Reconcile(leftRecord, rightRecord)
	default:
		s.discard(storedPath)
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}

	if err := s.db.SaveAnalysis(analysis); err != nil {
		s.discard(storedPath)
		return nil, fmt.Errorf("saving analysis to database: %w", err)
	}

	return analysis, nil
}

// runEngine extracts with one engine and normalizes the result. When the
// normalized record lacks a currency and the engine can transcribe visible
// text, the currency is resolved from that text before the record is
// published.
func (s *Service) runEngine(ctx context.Context, engine extraction.Engine, data []byte, contentType string) (*Record, error) {
	raw, err := engine.Extract(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to extract receipt",
			"engine", engine.Name(),
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("%s extraction: %w", engine.Name(), err)
	}

	record, err := Normalize(raw, engine.Name())
	if err != nil {
		return nil, fmt.Errorf("normalizing %s output: %w", engine.Name(), err)
	}

	if record.Currency == nil {
		if ocr, ok := engine.(extraction.TextExtractor); ok {
			text, err := ocr.ExtractText(ctx, data, contentType)
			if err != nil {
				slog.Warn("Failed to extract visible text", "engine", engine.Name(), "error", err)
			} else if code := ResolveCurrency(text); code != "" {
				record.Currency = &code
			}
		}
	}

	return record, nil
}

// runBoth runs both engines concurrently and waits for both to finish. Either
// failure is propagated; there is no partial-result path, so reconciliation
// never sees a synthetic empty side.
func (s *Service) runBoth(ctx context.Context, data []byte, contentType string) (*Record, *Record, error) {
	type result struct {
		record *Record
		err    error
	}

	leftCh := make(chan result, 1)
	rightCh := make(chan result, 1)

	go func() {
		record, err := s.runEngine(ctx, s.left, data, contentType)
		leftCh <- result{record, err}
	}()
	go func() {
		record, err := s.runEngine(ctx, s.right, data, contentType)
		rightCh <- result{record, err}
	}()

	left := <-leftCh
	right := <-rightCh

	if left.err != nil {
		return nil, nil, left.err
	}
	if right.err != nil {
		return nil, nil, right.err
	}

	return left.record, right.record, nil
}

func (s *Service) discard(storedPath string) {
	if err := s.storage.Delete(storedPath); err != nil {
		slog.Warn("Failed to delete file", "filename", storedPath, "error", err)
	}
}

// GetAnalysis retrieves an analysis by ID
func (s *Service) GetAnalysis(id string) (*Analysis, error) {
	analysis, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}
	return analysis, nil
}

// ListAnalyses returns all analyses
func (s *Service) ListAnalyses() ([]*Analysis, error) {
	analyses, err := s.db.ListAnalyses()
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return analyses, nil
}

// DeleteAnalysis removes an analysis and its stored file
func (s *Service) DeleteAnalysis(id string) error {
	analysis, err := s.db.GetAnalysis(id)
	if err != nil {
		return fmt.Errorf("getting analysis for deletion: %w", err)
	}

	if err := s.storage.Delete(analysis.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", analysis.Filename, "error", err)
	}

	if err := s.db.DeleteAnalysis(id); err != nil {
		return fmt.Errorf("deleting analysis from database: %w", err)
	}
	return nil
}

// GetAnalysisFile retrieves the stored document for an analysis
func (s *Service) GetAnalysisFile(id string) ([]byte, string, error) {
	analysis, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting analysis: %w", err)
	}

	data, err := s.storage.Get(analysis.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting analysis file: %w", err)
	}

	return data, analysis.ContentType, nil
}
