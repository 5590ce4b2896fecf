package scanning

import (
	"fmt"

	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/table"
)

// Stage identifies a step of the two-stage digitization pipeline.
type Stage string

const (
	StageExtraction   Stage = "extraction"
	StageVerification Stage = "verification"
)

// StageError reports which pipeline stage failed. A failure at either
// stage is terminal for that attempt; partial results are discarded.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Scanner defines the interface for digitizing barrel volume tables
// from scanned images.
type Scanner interface {
	// ExtractTable reads the table out of an image and returns it as a
	// confidence-annotated dataset batch.
	ExtractTable(imageData []byte, contentType string) (*table.Dataset, error)
	// VerifyTable re-reads the image against a previously extracted
	// batch and returns a corrected batch of the same shape.
	VerifyTable(imageData []byte, contentType string, extracted *table.Dataset) (*table.Dataset, error)
	// Close closes the scanner and releases resources
	Close() error
}
