package embedcache

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/model"
)

// diskTier is the optional disk KV cache tier, authoritative across
// process restarts: a WAL-mode sqlite connection over a narrow
// key/vector table.
type diskTier struct {
	db       *sql.DB
	table    string
	maxBytes int64
	dirLock  *flock.Flock
}

func newDiskTier(path, table string, maxBytes int64) (*diskTier, error) {
	if table == "" {
		table = "embedding_cache"
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Unexpected("CACHE", "DISK_DIR_FAILED", "failed to create cache directory", errs.ClassNonRetriable, err)
	}
	lock := flock.New(filepath.Join(dir, ".cache.lock"))
	if err := lock.Lock(); err != nil {
		return nil, errs.Unexpected("CACHE", "DISK_LOCK_FAILED", "failed to lock cache directory", errs.ClassRetriable, err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, errs.Unexpected("CACHE", "DISK_OPEN_FAILED", "failed to open embedding cache database", errs.ClassRetriable, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, errs.Unexpected("CACHE", "DISK_PRAGMA_FAILED", "failed to configure embedding cache database", errs.ClassNonRetriable, err)
		}
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		dim INTEGER NOT NULL,
		vector BLOB NOT NULL,
		inserted_at INTEGER NOT NULL
	)`, table)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, errs.Unexpected("CACHE", "DISK_SCHEMA_FAILED", "failed to create embedding cache table", errs.ClassNonRetriable, err)
	}
	return &diskTier{db: db, table: table, maxBytes: maxBytes, dirLock: lock}, nil
}

func (t *diskTier) close() error {
	err := t.db.Close()
	_ = t.dirLock.Unlock()
	return err
}

func (t *diskTier) get(key Key, wantDim int) (model.EmbeddingVector, error) {
	row := t.db.QueryRow(fmt.Sprintf("SELECT dim, vector FROM %s WHERE key = ?", t.table), string(key))
	var dim int
	var blob []byte
	if err := row.Scan(&dim, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errs.Expected("CACHE", "DISK_READ_FAILED", "embedding cache disk read failed: "+err.Error())
	}
	if wantDim > 0 && dim != wantDim {
		_, _ = t.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE key = ?", t.table), string(key))
		return nil, nil
	}
	return decodeVector(blob, dim), nil
}

func (t *diskTier) insert(key Key, vec model.EmbeddingVector, nowUnix int64) error {
	blob := encodeVector(vec)
	stmt := fmt.Sprintf("INSERT INTO %s (key, dim, vector, inserted_at) VALUES (?, ?, ?, ?) ON CONFLICT(key) DO UPDATE SET dim=excluded.dim, vector=excluded.vector, inserted_at=excluded.inserted_at", t.table)
	if _, err := t.db.Exec(stmt, string(key), len(vec), blob, nowUnix); err != nil {
		return errs.Expected("CACHE", "DISK_WRITE_FAILED", "embedding cache disk write failed: "+err.Error())
	}
	if t.maxBytes > 0 {
		t.enforceByteCap()
	}
	return nil
}

func (t *diskTier) enforceByteCap() {
	var totalBytes int64
	row := t.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(LENGTH(vector)), 0) FROM %s", t.table))
	_ = row.Scan(&totalBytes)
	if totalBytes <= t.maxBytes {
		return
	}
	_, _ = t.db.Exec(fmt.Sprintf(
		"DELETE FROM %s WHERE key IN (SELECT key FROM %s ORDER BY inserted_at ASC LIMIT 1)", t.table, t.table))
}

func encodeVector(vec model.EmbeddingVector) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte, dim int) model.EmbeddingVector {
	if len(blob) < dim*4 {
		return nil
	}
	vec := make(model.EmbeddingVector, dim)
	for i := 0; i < dim; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
