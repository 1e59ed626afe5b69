package basemap

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// TileCache stores encoded tiles keyed by XYZ address.
type TileCache interface {
	Get(ctx context.Context, z, x, y int) ([]byte, bool, error)
	Put(ctx context.Context, z, x, y int, data []byte) error
	Close() error
}

// MBTiles is a TileCache backed by an MBTiles SQLite file.
//
// Rows are stored in TMS order as the MBTiles format requires; callers use
// XYZ addresses and the row flip happens here.
type MBTiles struct {
	db *sql.DB
}

const mbtilesSchema = `
CREATE TABLE IF NOT EXISTS metadata (
	name  TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS tiles (
	zoom_level  INTEGER NOT NULL,
	tile_column INTEGER NOT NULL,
	tile_row    INTEGER NOT NULL,
	tile_data   BLOB NOT NULL,
	PRIMARY KEY (zoom_level, tile_column, tile_row)
);
`

// OpenMBTiles opens or creates an MBTiles cache at path and records the
// provider in the metadata table.
func OpenMBTiles(ctx context.Context, path string, p Provider) (*MBTiles, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "mbtiles: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "mbtiles: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, mbtilesSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "mbtiles: migrate")
	}
	m := &MBTiles{db: db}
	meta := map[string]string{
		"name":        p.Name,
		"format":      "png",
		"type":        "baselayer",
		"version":     "1.3",
		"attribution": p.Attribution,
	}
	for k, v := range meta {
		if err := m.SetMetadata(ctx, k, v); err != nil {
			db.Close()
			return nil, err
		}
	}
	return m, nil
}

// tmsRow converts an XYZ row to the TMS row used by MBTiles.
func tmsRow(z, y int) int { return (1 << z) - 1 - y }

// Get returns the stored tile, if any.
func (m *MBTiles) Get(ctx context.Context, z, x, y int) ([]byte, bool, error) {
	var data []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		z, x, tmsRow(z, y)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "mbtiles: get %d/%d/%d", z, x, y)
	}
	return data, true, nil
}

// Put stores or replaces a tile.
func (m *MBTiles) Put(ctx context.Context, z, x, y int, data []byte) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)`,
		z, x, tmsRow(z, y), data)
	return eris.Wrapf(err, "mbtiles: put %d/%d/%d", z, x, y)
}

// SetMetadata writes one metadata key.
func (m *MBTiles) SetMetadata(ctx context.Context, name, value string) error {
	_, err := m.db.ExecContext(ctx, `INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)`, name, value)
	return eris.Wrapf(err, "mbtiles: set metadata %s", name)
}

// Metadata reads one metadata key.
func (m *MBTiles) Metadata(ctx context.Context, name string) (string, error) {
	var v string
	err := m.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE name = ?`, name).Scan(&v)
	if err != nil {
		return "", eris.Wrapf(err, "mbtiles: metadata %s", name)
	}
	return v, nil
}

// Count returns the number of stored tiles.
func (m *MBTiles) Count(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tiles`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "mbtiles: count")
	}
	return n, nil
}

// Close closes the database.
func (m *MBTiles) Close() error {
	return m.db.Close()
}
