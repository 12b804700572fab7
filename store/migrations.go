package store

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

// Migrations creates and evolves the detection history schema.
func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE detection(
			id INTEGER PRIMARY KEY,
			request_id TEXT NOT NULL,
			file_path TEXT NOT NULL,
			file_type TEXT NOT NULL,
			is_safe BOOLEAN NOT NULL,
			confidence INT NOT NULL,
			detected_items TEXT NOT NULL,
			missing_items TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at INT NOT NULL
		);

		CREATE UNIQUE INDEX idx_detection_request_id ON detection (request_id);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		ALTER TABLE detection ADD COLUMN violations TEXT NOT NULL DEFAULT '[]';
		CREATE INDEX idx_detection_is_safe ON detection (is_safe);
	`))

	return migs
}
