package barrel

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/scanning"
	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/table"
)

// IDGenerator generates unique IDs for scans
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service owns the dataset and sequences everything that touches it.
// The engines in the table package are pure; serialization of dataset
// mutations happens here, under mu: a merge reads a consistent snapshot
// and replaces it before the next merge or lookup reads.
type Service struct {
	db          DB
	repo        Repository
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	mu          sync.Mutex
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, repo Repository, scanner scanning.Scanner, storage Storage) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		scanner:     scanner,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, repo Repository, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	// Phone cameras produce very long names
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "scan"
	}

	return base + ext
}

// DigitizeScan stores an uploaded gauge table image and runs the
// two-stage pipeline over it: extract the table, then verify the
// extraction against the same image. A failure at either stage removes
// the stored file and discards all intermediate state; nothing reaches
// the dataset. On success the verified batch is returned for the user
// to confirm, it is NOT merged here.
func (s *Service) DigitizeScan(filename string, data []byte, contentType string) (*Scan, *table.Dataset, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, nil, fmt.Errorf("saving file: %w", err)
	}

	extracted, err := s.scanner.ExtractTable(data, contentType)
	if err != nil {
		slog.Error("Failed to extract table",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, nil, &scanning.StageError{Stage: scanning.StageExtraction, Err: err}
	}

	verified, err := s.scanner.VerifyTable(data, contentType, extracted)
	if err != nil {
		slog.Error("Failed to verify extracted table",
			"filename", filename,
			"rows_extracted", len(extracted.Rows),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, nil, &scanning.StageError{Stage: scanning.StageVerification, Err: err}
	}

	scan := &Scan{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		RowCount:    len(verified.Rows),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveScan(scan); err != nil {
		s.storage.Delete(savedPath)
		return nil, nil, fmt.Errorf("saving scan to database: %w", err)
	}

	return scan, verified, nil
}

// Dataset returns the current persisted dataset
func (s *Service) Dataset() (table.Dataset, error) {
	ds, err := s.repo.Load()
	if err != nil {
		return table.Dataset{}, fmt.Errorf("loading dataset: %w", err)
	}
	return ds, nil
}

// MergeBatch reconciles a confirmed batch into the persisted dataset
// and returns the merged result
func (s *Service) MergeBatch(batch table.Dataset) (table.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Load()
	if err != nil {
		return table.Dataset{}, fmt.Errorf("loading dataset: %w", err)
	}

	merged := table.Merge(current, batch)

	if err := s.repo.Save(merged); err != nil {
		return table.Dataset{}, fmt.Errorf("saving dataset: %w", err)
	}

	return merged, nil
}

// EditCell applies a manual correction to one cell, identified by the
// row's height and the column name. The edit rides the merge engine as
// a single-row batch with user confidence, which also re-sorts and
// re-keys exactly like an AI batch would.
func (s *Service) EditCell(rawHeight, column string, value table.Value) (table.Dataset, error) {
	if column == "" {
		return table.Dataset{}, fmt.Errorf("column is required")
	}
	if value.IsNull() {
		// The conservative merge cannot erase cells; rejecting beats
		// silently dropping the edit.
		return table.Dataset{}, fmt.Errorf("cell value is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Load()
	if err != nil {
		return table.Dataset{}, fmt.Errorf("loading dataset: %w", err)
	}
	keyCol := current.KeyColumn()
	if keyCol == "" {
		return table.Dataset{}, fmt.Errorf("dataset has no rows to edit")
	}

	var keyValue table.Value
	if f, err := strconv.ParseFloat(strings.TrimSpace(rawHeight), 64); err == nil {
		keyValue = table.NumberValue(f)
	} else {
		keyValue = table.TextValue(strings.TrimSpace(rawHeight))
	}
	if keyValue.IsNull() || keyValue.String() == "" {
		return table.Dataset{}, fmt.Errorf("height is required")
	}

	batch := table.Dataset{
		Columns: []string{keyCol, column},
		Rows: []table.Row{{
			keyCol: {Value: keyValue, Confidence: table.ConfidenceUser},
			column: {Value: value, Confidence: table.ConfidenceUser},
		}},
	}

	merged := table.Merge(current, batch)

	if err := s.repo.Save(merged); err != nil {
		return table.Dataset{}, fmt.Errorf("saving dataset: %w", err)
	}

	return merged, nil
}

// ClearDataset wipes the persisted dataset
func (s *Service) ClearDataset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Clear(); err != nil {
		return fmt.Errorf("clearing dataset: %w", err)
	}
	return nil
}

// Lookup answers a height-to-volume query against the current dataset
func (s *Service) Lookup(column, rawHeight string) (table.LookupResult, error) {
	ds, err := s.repo.Load()
	if err != nil {
		return table.LookupResult{}, fmt.Errorf("loading dataset: %w", err)
	}
	return table.CalculateRaw(ds, column, rawHeight), nil
}

// ExportCSV renders the current dataset as CSV text
func (s *Service) ExportCSV() (string, error) {
	ds, err := s.repo.Load()
	if err != nil {
		return "", fmt.Errorf("loading dataset: %w", err)
	}
	return table.CSV(ds)
}

// ExportJSON renders the current dataset as pretty-printed JSON text
func (s *Service) ExportJSON() (string, error) {
	ds, err := s.repo.Load()
	if err != nil {
		return "", fmt.Errorf("loading dataset: %w", err)
	}
	return table.JSON(ds)
}

// GetScan retrieves a scan record by ID
func (s *Service) GetScan(id string) (*Scan, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return scan, nil
}

// ListScans returns all scan records
func (s *Service) ListScans() ([]*Scan, error) {
	scans, err := s.db.ListScans()
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return scans, nil
}

// DeleteScan removes a scan record and its stored image
func (s *Service) DeleteScan(id string) error {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return fmt.Errorf("getting scan for deletion: %w", err)
	}

	if err := s.storage.Delete(scan.Filename); err != nil {
		// Keep going, the record matters more than the image
		slog.Warn("Failed to delete file", "filename", scan.Filename, "error", err)
	}

	if err := s.db.DeleteScan(id); err != nil {
		return fmt.Errorf("deleting scan from database: %w", err)
	}
	return nil
}

// GetScanFile retrieves the stored image for a scan
func (s *Service) GetScanFile(id string) ([]byte, string, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan: %w", err)
	}

	data, err := s.storage.Get(scan.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan file: %w", err)
	}

	return data, scan.ContentType, nil
}
