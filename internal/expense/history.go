package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const scanBucketName = "scans"

// ErrScanNotFound is returned when a scan id is not in the history
var ErrScanNotFound = errors.New("scan not found")

// ScanRecord is a past scan kept for debugging
type ScanRecord struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StoredFile  string    `json:"stored_file,omitempty"`
	ContentType string    `json:"content_type"`
	Result      *Result   `json:"result"`
	CreatedAt   time.Time `json:"created_at"`
}

// History defines the interface for scan history operations
type History interface {
	// SaveScan stores a scan record
	SaveScan(record *ScanRecord) error

	// GetScan retrieves a scan record by ID
	GetScan(id string) (*ScanRecord, error)

	// ListScans returns up to limit records, newest first. limit <= 0
	// returns every record.
	ListScans(limit int) ([]*ScanRecord, error)

	// Close closes the underlying store
	Close() error
}

// BoltHistory implements the History interface using BoltDB
type BoltHistory struct {
	db *bbolt.DB
}

// NewBoltHistory opens or creates the history database
func NewBoltHistory(path string) (*BoltHistory, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(scanBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltHistory{db: db}, nil
}

// SaveScan stores a scan record keyed by its ID. IDs are time ordered, so
// cursor order is creation order.
func (b *BoltHistory) SaveScan(record *ScanRecord) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling scan: %w", err)
		}
		return bucket.Put([]byte(record.ID), data)
	})
}

// GetScan retrieves a scan record by ID
func (b *BoltHistory) GetScan(id string) (*ScanRecord, error) {
	var record *ScanRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrScanNotFound, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListScans returns the most recent scans first
func (b *BoltHistory) ListScans(limit int) ([]*ScanRecord, error) {
	records := make([]*ScanRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(scanBucketName)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var record ScanRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling scan: %w", err)
			}
			records = append(records, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database connection
func (b *BoltHistory) Close() error {
	return b.db.Close()
}
