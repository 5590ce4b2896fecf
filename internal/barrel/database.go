package barrel

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/table"
)

const (
	scanBucketName    = "scans"
	datasetBucketName = "dataset"
	datasetKey        = "current"
)

// DB defines the interface for scan record operations
type DB interface {
	// SaveScan saves a scan record to the database
	SaveScan(scan *Scan) error

	// GetScan retrieves a scan record by ID
	GetScan(id string) (*Scan, error)

	// ListScans returns all scan records
	ListScans() ([]*Scan, error)

	// DeleteScan removes a scan record from the database
	DeleteScan(id string) error

	// Close closes the database connection
	Close() error
}

// Repository persists the current dataset under a single logical key.
// A missing or corrupt blob loads as an empty dataset, never an error:
// losing the dataset must not take the application down with it.
type Repository interface {
	Load() (table.Dataset, error)
	Save(ds table.Dataset) error
	Clear() error
}

// BoltDB implements the DB and Repository interfaces using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(scanBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(datasetBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveScan saves a scan record to the database
func (b *BoltDB) SaveScan(scan *Scan) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data, err := json.Marshal(scan)
		if err != nil {
			return fmt.Errorf("marshaling scan: %w", err)
		}
		return bucket.Put([]byte(scan.ID), data)
	})
}

// GetScan retrieves a scan record by ID
func (b *BoltDB) GetScan(id string) (*Scan, error) {
	var scan *Scan
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("scan not found: %s", id)
		}
		return json.Unmarshal(data, &scan)
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// ListScans returns all scan records
func (b *BoltDB) ListScans() ([]*Scan, error) {
	scans := make([]*Scan, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var scan Scan
			if err := json.Unmarshal(v, &scan); err != nil {
				return fmt.Errorf("unmarshaling scan: %w", err)
			}
			scans = append(scans, &scan)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return scans, nil
}

// DeleteScan removes a scan record from the database
func (b *BoltDB) DeleteScan(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		return bucket.Delete([]byte(id))
	})
}

// Load retrieves the current dataset, or an empty dataset when nothing
// usable is stored
func (b *BoltDB) Load() (table.Dataset, error) {
	var ds table.Dataset
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(datasetBucketName))
		data := bucket.Get([]byte(datasetKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &ds); err != nil {
			slog.Warn("Stored dataset is corrupt, starting empty", "error", err)
			ds = table.Dataset{}
		}
		return nil
	})
	if err != nil {
		return table.Dataset{}, fmt.Errorf("loading dataset: %w", err)
	}
	return ds, nil
}

// Save replaces the current dataset
func (b *BoltDB) Save(ds table.Dataset) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(datasetBucketName))
		data, err := json.Marshal(ds)
		if err != nil {
			return fmt.Errorf("marshaling dataset: %w", err)
		}
		return bucket.Put([]byte(datasetKey), data)
	})
}

// Clear removes the current dataset
func (b *BoltDB) Clear() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(datasetBucketName))
		return bucket.Delete([]byte(datasetKey))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
