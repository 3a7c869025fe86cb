// Package store provides a thin bbolt wrapper for trafficast's local data
// store.
//
// Design philosophy: the store is an intentional data accumulator, not a
// transparent cache. Datasets are written explicitly by ingest and read by
// analysis and forecast commands. No TTL, no auto-invalidation — you own
// your data.
//
// Buckets:
//
//	datasets — ingested daily traffic records keyed by dataset name
//	runs     — saved forecast runs keyed by dataset|timestamp
//	_meta    — internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/trafficast/trafficast/internal/model"
	"github.com/trafficast/trafficast/internal/util"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketDatasets = []byte("datasets")
	bucketRuns     = []byte("runs")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"datasets", "runs"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketDatasets, bucketRuns, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Datasets ─────────────────────────────────────────────────────────────────

// DatasetMeta summarizes a stored dataset.
type DatasetMeta struct {
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
	Rows       int       `json:"rows"`
	Start      string    `json:"start,omitempty"`
	End        string    `json:"end,omitempty"`
}

// storedRecord is the JSON-safe on-disk representation of one day.
// Optional metrics use *float64 so missing values (NaN) are stored as JSON
// null rather than NaN, which encoding/json cannot handle.
type storedRecord struct {
	Date        string   `json:"date"`
	Clicks      float64  `json:"clicks"`
	Impressions *float64 `json:"impressions"` // null = missing
	CTR         *float64 `json:"ctr"`
	Position    *float64 `json:"position"`
}

// storedDataset is the on-disk envelope for a dataset entry.
type storedDataset struct {
	Meta    DatasetMeta    `json:"meta"`
	Records []storedRecord `json:"records"`
}

func recordToStored(r model.Record) storedRecord {
	row := storedRecord{
		Date:   util.FormatDate(r.Date),
		Clicks: r.Clicks,
	}
	row.Impressions = optFloat(r.Impressions)
	row.CTR = optFloat(r.CTR)
	row.Position = optFloat(r.Position)
	return row
}

func storedToRecord(row storedRecord) model.Record {
	t, _ := util.ParseDate(row.Date)
	return model.Record{
		Date:        t,
		Clicks:      row.Clicks,
		Impressions: floatOrNaN(row.Impressions),
		CTR:         floatOrNaN(row.CTR),
		Position:    floatOrNaN(row.Position),
	}
}

func optFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// PutDataset stores raw records under name, stamping IngestedAt.
// Records should already be sorted by date; Start/End are taken from the
// first and last record.
func (s *Store) PutDataset(name, sourcePath string, recs []model.Record) error {
	if name == "" {
		return fmt.Errorf("store: dataset name required")
	}
	meta := DatasetMeta{
		Name:       name,
		SourcePath: sourcePath,
		IngestedAt: time.Now().UTC(),
		Rows:       len(recs),
	}
	if len(recs) > 0 {
		meta.Start = util.FormatDate(recs[0].Date)
		meta.End = util.FormatDate(recs[len(recs)-1].Date)
	}

	rows := make([]storedRecord, len(recs))
	for i, r := range recs {
		rows[i] = recordToStored(r)
	}
	b, err := json.Marshal(storedDataset{Meta: meta, Records: rows})
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDatasets).Put([]byte(name), b)
	})
}

// GetDataset retrieves a dataset by name.
// Returns (records, meta, true, nil) if found, (nil, zero, false, nil) if not.
func (s *Store) GetDataset(name string) ([]model.Record, DatasetMeta, bool, error) {
	var envelope storedDataset
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDatasets).Get([]byte(name))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &envelope)
	})
	if err != nil {
		return nil, DatasetMeta{}, false, err
	}
	if envelope.Meta.Name == "" {
		return nil, DatasetMeta{}, false, nil
	}
	recs := make([]model.Record, len(envelope.Records))
	for i, row := range envelope.Records {
		recs[i] = storedToRecord(row)
	}
	return recs, envelope.Meta, true, nil
}

// ListDatasets returns metadata for all stored datasets, sorted by name.
func (s *Store) ListDatasets() ([]DatasetMeta, error) {
	var metas []DatasetMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDatasets).ForEach(func(k, v []byte) error {
			var envelope storedDataset
			if err := json.Unmarshal(v, &envelope); err != nil {
				return err
			}
			metas = append(metas, envelope.Meta)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas, nil
}

// DeleteDataset removes a dataset by name.
func (s *Store) DeleteDataset(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDatasets).Delete([]byte(name))
	})
}

// ─── Forecast Runs ────────────────────────────────────────────────────────────

// Run is a saved forecast run: the future predictions plus the holdout
// metrics that scored the model.
type Run struct {
	ID          string             `json:"id"`
	Dataset     string             `json:"dataset"`
	GeneratedAt time.Time          `json:"generated_at"`
	Horizon     int                `json:"horizon"`
	Validation  *storedValidation  `json:"validation,omitempty"`
	Predictions []model.Prediction `json:"predictions"`
}

// storedValidation mirrors model.ValidationMetrics with nullable metrics.
type storedValidation struct {
	TrainRows int      `json:"train_rows"`
	TestRows  int      `json:"test_rows"`
	MAE       *float64 `json:"mae"`
	MAPE      *float64 `json:"mape"`
	RMSE      *float64 `json:"rmse"`
	Coverage  *float64 `json:"coverage"`
}

func validationToStored(v *model.ValidationMetrics) *storedValidation {
	if v == nil {
		return nil
	}
	return &storedValidation{
		TrainRows: v.TrainRows,
		TestRows:  v.TestRows,
		MAE:       optFloat(v.MAE),
		MAPE:      optFloat(v.MAPE),
		RMSE:      optFloat(v.RMSE),
		Coverage:  optFloat(v.Coverage),
	}
}

// Metrics converts the stored validation back to model.ValidationMetrics.
func (v *storedValidation) Metrics() *model.ValidationMetrics {
	if v == nil {
		return nil
	}
	return &model.ValidationMetrics{
		TrainRows: v.TrainRows,
		TestRows:  v.TestRows,
		MAE:       floatOrNaN(v.MAE),
		MAPE:      floatOrNaN(v.MAPE),
		RMSE:      floatOrNaN(v.RMSE),
		Coverage:  floatOrNaN(v.Coverage),
	}
}

// RunKey builds the canonical key for a forecast run.
// Format: run:<dataset>|<RFC3339 timestamp>
func RunKey(dataset string, at time.Time) string {
	return "run:" + dataset + "|" + at.UTC().Format(time.RFC3339)
}

// PutRun saves a forecast run and returns its key.
func (s *Store) PutRun(fr *model.ForecastResult) (string, error) {
	key := RunKey(fr.Dataset, fr.GeneratedAt)
	run := Run{
		ID:          key,
		Dataset:     fr.Dataset,
		GeneratedAt: fr.GeneratedAt,
		Horizon:     fr.Horizon,
		Validation:  validationToStored(fr.Validation),
		Predictions: fr.Future,
	}
	b, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("encoding run: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte(key), b)
	})
	return key, err
}

// GetRun retrieves a forecast run by key.
func (s *Store) GetRun(key string) (Run, bool, error) {
	var run Run
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRuns).Get([]byte(key))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &run)
	})
	if err != nil {
		return run, false, err
	}
	return run, run.ID != "", nil
}

// ListRuns returns all runs for a dataset in key order (chronological).
// Pass dataset="" to list all runs.
func (s *Store) ListRuns(dataset string) ([]Run, error) {
	prefix := []byte("run:")
	if dataset != "" {
		prefix = []byte("run:" + dataset + "|")
	}
	var runs []Run
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}

// DeleteRun removes a forecast run by key.
func (s *Store) DeleteRun(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Delete([]byte(key))
	})
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Stats returns row counts and approximate sizes for all buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	buckets := map[string][]byte{
		"datasets": bucketDatasets,
		"runs":     bucketRuns,
	}

	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for name, bname := range buckets {
			b := tx.Bucket(bname)
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats, nil
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	var merr util.MultiError
	for _, name := range AllBuckets {
		merr.Add(s.ClearBucket(name))
	}
	return merr.Err()
}
