// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to describe the condition and configuration
// database of the drift chamber track finder.
package conddb // import "github.com/go-lpc/legendre/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to easily retrieve conditions data
// and configuration data from the track finder database.
type DB struct {
	db   *sql.DB
	name string // name of the database
}

// Open opens a connection to the database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

// Name returns the name of the database.
func (db *DB) Name() string { return db.name }

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastTag returns the tag of the most recent finder parameter set.
func (db *DB) LastTag(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT tag FROM finder_params ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return tag, fmt.Errorf("conddb: could not query last tag: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&tag)
		if err != nil {
			return tag, fmt.Errorf("conddb: could not get last tag value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return tag, fmt.Errorf("conddb: could not scan db for last tag: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return tag, fmt.Errorf("conddb: context error while retrieving last tag: %w", err)
	}

	if tag == "" {
		return tag, fmt.Errorf("conddb: no finder parameter set")
	}

	return tag, nil
}

// Params returns the finder parameter set identified by tag.
func (db *DB) Params(ctx context.Context, tag string) (Params, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ps Params
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT
	tag, threshold, init_hits, step_scale,
	max_level, rmin, rmax, curlers,
	res_stereo, precut, sigma,
	early_merge, free_fit, outlier_cut, curler_merge
FROM finder_params WHERE tag=?
`,
		tag,
	)
	if err != nil {
		return ps, fmt.Errorf("conddb: could not run finder params query: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		err = rows.Scan(
			&ps.Tag, &ps.Threshold, &ps.InitHits, &ps.StepScale,
			&ps.MaxLevel, &ps.RMin, &ps.RMax, &ps.Curlers,
			&ps.ResStereo, &ps.Precut, &ps.Sigma,
			&ps.EarlyMerge, &ps.FreeFit, &ps.OutlierCut, &ps.CurlerMerge,
		)
		if err != nil {
			return ps, fmt.Errorf("conddb: could not scan finder params %q: %w", tag, err)
		}
		n++
	}

	if err := rows.Err(); err != nil {
		return ps, fmt.Errorf("conddb: could not scan db for finder params: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return ps, fmt.Errorf("conddb: context error while retrieving finder params: %w", err)
	}

	if n != 1 {
		return ps, fmt.Errorf("conddb: invalid number of finder params for tag %q (n=%d)", tag, n)
	}

	return ps, nil
}

// Layers returns the geometry of the drift chamber, sorted by layer id.
func (db *DB) Layers(ctx context.Context) ([]Layer, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var layers []Layer
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT identifier, radius, nwires, stereo, phi0 FROM layers ORDER BY identifier",
	)
	if err != nil {
		return layers, fmt.Errorf(
			"conddb: could not run layers query: %w",
			err,
		)
	}
	defer rows.Close()

	for rows.Next() {
		var lay Layer
		err = rows.Scan(&lay.ID, &lay.Radius, &lay.NWires, &lay.Stereo, &lay.Phi0)
		if err != nil {
			return layers, fmt.Errorf(
				"conddb: could not scan layers: %w",
				err,
			)
		}
		layers = append(layers, lay)
	}

	if err := rows.Err(); err != nil {
		return layers, fmt.Errorf(
			"conddb: could not scan db for layers: %w",
			err,
		)
	}

	if err := ctx.Err(); err != nil {
		return layers, fmt.Errorf(
			"conddb: context error while retrieving layers: %w",
			err,
		)
	}

	return layers, nil
}
