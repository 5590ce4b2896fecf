package barrel

import "time"

// Scan represents one digitized upload of a gauge table image
type Scan struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	RowCount    int       `json:"row_count"` // Rows in the verified batch
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
