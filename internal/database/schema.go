package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the billing tables when they are missing.  The column that
// holds a reading's usage is named units_used because USAGE is a reserved
// word in MySQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		room_number VARCHAR(32)  NOT NULL,
		owner_name  VARCHAR(255) NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_room_number (room_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS water_readings (
		id                 BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		room_id            BIGINT UNSIGNED NOT NULL,
		month              CHAR(7) NOT NULL,
		last_month_reading DOUBLE NOT NULL DEFAULT 0,
		this_month_reading DOUBLE NOT NULL DEFAULT 0,
		units_used         DOUBLE NOT NULL DEFAULT 0,
		price_per_unit     DOUBLE NOT NULL DEFAULT 5,
		total_price        DOUBLE NOT NULL DEFAULT 0,
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_room_month (room_id, month),
		KEY idx_month (month),
		CONSTRAINT fk_readings_room FOREIGN KEY (room_id) REFERENCES rooms (id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
