// Package export records sampled poses into a SQLite database so that bone
// trajectories can be inspected with ordinary SQL.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/mmd-pose/internal/engine/animator"
	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
	"github.com/Faultbox/mmd-pose/internal/logger"
	"github.com/Faultbox/mmd-pose/pkg/math"
)

const schema = `
CREATE TABLE IF NOT EXISTS bones (
	idx    INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	parent INTEGER,
	kind   TEXT NOT NULL,
	bind_x REAL NOT NULL,
	bind_y REAL NOT NULL,
	bind_z REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	frame INTEGER NOT NULL,
	bone  INTEGER NOT NULL REFERENCES bones(idx),
	x     REAL NOT NULL,
	y     REAL NOT NULL,
	z     REAL NOT NULL,
	PRIMARY KEY (frame, bone)
);

CREATE TABLE IF NOT EXISTS solve_errors (
	frame   INTEGER NOT NULL,
	message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_solve_errors_frame ON solve_errors(frame);
`

// Store is an open pose database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteSkeleton replaces the bone table and clears recorded frames.
func (s *Store) WriteSkeleton(ctx context.Context, skel *skeleton.Skeleton) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	for _, stmt := range []string{"DELETE FROM positions", "DELETE FROM solve_errors", "DELETE FROM bones"} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	insert, err := tx.PrepareContext(ctx,
		"INSERT INTO bones (idx, name, parent, kind, bind_x, bind_y, bind_z) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer insert.Close()

	for i := 0; i < skel.Len(); i++ {
		b := skel.Bone(i)
		var parent sql.NullInt64
		if b.Parent != skeleton.NoParent {
			parent = sql.NullInt64{Int64: int64(b.Parent), Valid: true}
		}
		if _, err = insert.ExecContext(ctx, i, b.Name, parent, b.Kind.String(), b.Bind.X, b.Bind.Y, b.Bind.Z); err != nil {
			return fmt.Errorf("bone %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Record updates the animator for every frame in [from, to] and stores each
// bone's world position. Chains that fail to solve are stored in
// solve_errors and do not stop the recording. WriteSkeleton must have been
// called for the animator's skeleton first.
func (s *Store) Record(ctx context.Context, a *animator.Animator, from, to uint32, global math.Mat4) (frames int, err error) {
	if to < from {
		return 0, fmt.Errorf("empty frame range [%d, %d]", from, to)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	insertPos, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO positions (frame, bone, x, y, z) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer insertPos.Close()

	insertErr, err := tx.PrepareContext(ctx,
		"INSERT INTO solve_errors (frame, message) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer insertErr.Close()

	n := a.Skeleton().Len()
	for frame := from; ; frame++ {
		if err = ctx.Err(); err != nil {
			return frames, err
		}

		for _, solveErr := range multierr.Errors(a.Update(frame, global)) {
			if _, err = insertErr.ExecContext(ctx, frame, solveErr.Error()); err != nil {
				return frames, err
			}
		}
		for i := 0; i < n; i++ {
			p := a.Position(i)
			if _, err = insertPos.ExecContext(ctx, frame, i, p.X, p.Y, p.Z); err != nil {
				return frames, fmt.Errorf("frame %d bone %d: %w", frame, i, err)
			}
		}
		frames++

		if frame == to {
			break
		}
	}

	if err = tx.Commit(); err != nil {
		return frames, err
	}
	logger.Debug("recorded poses",
		zap.String("db", s.path),
		zap.Uint32("from", from),
		zap.Uint32("to", to),
		zap.Int("bones", n))
	return frames, nil
}

// Positions returns the stored positions of every bone at frame, indexed by
// bone. Bones without a row are left at the origin.
func (s *Store) Positions(ctx context.Context, frame uint32) ([]math.Vec3, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bones").Scan(&count); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT bone, x, y, z FROM positions WHERE frame = ? ORDER BY bone", frame)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]math.Vec3, count)
	for rows.Next() {
		var bone int
		var x, y, z float64
		if err := rows.Scan(&bone, &x, &y, &z); err != nil {
			return nil, err
		}
		if bone >= 0 && bone < count {
			out[bone] = math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}
		}
	}
	return out, rows.Err()
}

// SolveErrors returns the stored solver messages for frame.
func (s *Store) SolveErrors(ctx context.Context, frame uint32) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT message FROM solve_errors WHERE frame = ? ORDER BY rowid", frame)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// FrameCount returns the number of distinct recorded frames.
func (s *Store) FrameCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT frame) FROM positions").Scan(&n)
	return n, err
}
