// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
// vec0 KNN queries are exhaustive, so results are exact L2 rankings.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"

	"safetyrag/internal/domain"
)

// DefaultDBPath keeps the index in memory; the corpus is rebuilt on every start.
const DefaultDBPath = ":memory:"

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// Index implements domain.VectorIndex on a vec0 virtual table. Row ids are
// positions plus one.
type Index struct {
	db     *sql.DB
	logger *slog.Logger

	mu        sync.RWMutex
	dimension int
	count     int
}

// NewIndex opens the database and verifies the sqlite-vec extension.
func NewIndex(c Config, logger *slog.Logger) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	path := c.DBPath
	if path == "" {
		path = DefaultDBPath
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrConfiguration, "failed to open sqlite database",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, goerr.Wrap(domain.ErrConfiguration, "sqlite-vec not available", goerr.V("cause", err.Error()))
	}
	logger.Info("sqlite-vec index opened", "db_path", path, "vec_version", vecVersion)

	return &Index{db: db, logger: logger}, nil
}

// Name returns the identifier of this index implementation.
func (x *Index) Name() string { return "sqlitevec" }

// Init recreates the vec0 table for the given dimension.
func (x *Index) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return goerr.Wrap(domain.ErrIndex, "invalid dimension", goerr.V("dimension", dimension))
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, err := x.db.ExecContext(ctx, `DROP TABLE IF EXISTS vec_cases`); err != nil {
		return goerr.Wrap(domain.ErrIndex, "failed to drop vec0 table", goerr.V("cause", err.Error()))
	}
	createVec := fmt.Sprintf(`CREATE VIRTUAL TABLE vec_cases USING vec0(embedding float[%d])`, dimension)
	if _, err := x.db.ExecContext(ctx, createVec); err != nil {
		return goerr.Wrap(domain.ErrIndex, "failed to create vec0 table", goerr.V("cause", err.Error()))
	}
	x.dimension = dimension
	x.count = 0
	return nil
}

// Add appends vectors in one transaction.
func (x *Index) Add(ctx context.Context, vectors [][]float64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dimension == 0 {
		return goerr.Wrap(domain.ErrIndex, "index not initialized")
	}
	for i, v := range vectors {
		if len(v) != x.dimension {
			return goerr.Wrap(domain.ErrIndex, "vector dimension mismatch",
				goerr.V("position", x.count+i), goerr.V("expected", x.dimension), goerr.V("actual", len(v)))
		}
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(domain.ErrIndex, "failed to begin transaction", goerr.V("cause", err.Error()))
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i, v := range vectors {
		rowID := x.count + i + 1
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_cases(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(v),
		); err != nil {
			return goerr.Wrap(domain.ErrIndex, "failed to insert embedding",
				goerr.V("rowid", rowID), goerr.V("cause", err.Error()))
		}
	}
	if err := tx.Commit(); err != nil {
		return goerr.Wrap(domain.ErrIndex, "failed to commit transaction", goerr.V("cause", err.Error()))
	}
	x.count += len(vectors)

	x.logger.Debug("added vectors to sqlite-vec", "count", len(vectors))
	return nil
}

// Search runs a vec0 KNN query. vec0 reports L2 distance; it is squared
// here so every index reports the same unit. Equal distances are ordered
// by position.
func (x *Index) Search(ctx context.Context, query []float64, k int) ([]domain.Neighbor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(query) != x.dimension {
		return nil, goerr.Wrap(domain.ErrIndex, "query dimension mismatch",
			goerr.V("expected", x.dimension), goerr.V("actual", len(query)))
	}
	if k <= 0 || x.count == 0 {
		return []domain.Neighbor{}, nil
	}
	k = min(k, x.count)

	rows, err := x.db.QueryContext(ctx, `
		SELECT rowid, distance
		FROM vec_cases
		WHERE embedding MATCH ?
			AND k = ?
		ORDER BY distance
	`, serializeFloat32(query), k)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrIndex, "failed to query vectors", goerr.V("cause", err.Error()))
	}
	defer rows.Close()

	hits := make([]domain.Neighbor, 0, k)
	for rows.Next() {
		var rowID int64
		var distance float64
		if err := rows.Scan(&rowID, &distance); err != nil {
			return nil, goerr.Wrap(domain.ErrIndex, "failed to scan query result", goerr.V("cause", err.Error()))
		}
		hits = append(hits, domain.Neighbor{Position: int(rowID - 1), Distance: distance * distance})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(domain.ErrIndex, "failed to iterate query results", goerr.V("cause", err.Error()))
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})
	return hits, nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.count
}

// Close releases the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// serializeFloat32 converts a vector to the little-endian float32 BLOB
// format expected by sqlite-vec.
func serializeFloat32(v []float64) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return buf
}
