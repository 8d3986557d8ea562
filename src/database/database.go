package database

import (
	"database/sql"
	stdlog "log"

	"github.com/pigstyle/records/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens (or creates) the single-file store database and ensures the
// schema is current. Migrations are additive column checks against
// PRAGMA table_info, the same way every past revision of this backend has
// evolved the file in place.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}
	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'employee',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS genres (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS statuses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		artist TEXT NOT NULL,
		title TEXT NOT NULL,
		genre_id INTEGER,
		status_id INTEGER NOT NULL DEFAULT 1,
		condition TEXT NOT NULL DEFAULT 'VG',
		price REAL NOT NULL DEFAULT 0,
		barcode TEXT,
		catalog_number TEXT,
		year TEXT,
		image_url TEXT,
		discogs_id TEXT,
		discogs_genre TEXT,
		consignor_id INTEGER,
		sold_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(genre_id) REFERENCES genres(id),
		FOREIGN KEY(status_id) REFERENCES statuses(id),
		FOREIGN KEY(consignor_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id INTEGER NOT NULL,
		payment_id TEXT,
		amount REAL NOT NULL,
		commission_rate REAL NOT NULL DEFAULT 0,
		consignor_payout REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(record_id) REFERENCES records(id)
	);

	CREATE TABLE IF NOT EXISTS discogs_genre_mappings (
		discogs_genre TEXT PRIMARY KEY,
		genre_id INTEGER NOT NULL,
		FOREIGN KEY(genre_id) REFERENCES genres(id)
	);

	CREATE TABLE IF NOT EXISTS store_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateRecordsTable()
	seedStatuses()

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	}
}

// migrateRecordsTable adds columns introduced after the first schema
// shipped. Older store databases in the field predate consignment and the
// Discogs linkage.
func migrateRecordsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='records'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'records' table", "error", err)
		}
		return
	}

	columnExists := make(map[string]bool)
	rows, err := DB.Query("PRAGMA table_info(records)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'records'", "error", err)
		}
		return
	}
	defer rows.Close()

	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'records'", "error", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'records'", "error", err)
		}
		return
	}

	addColumn := func(name, ddl string) {
		if columnExists[name] {
			return
		}
		if _, err := DB.Exec("ALTER TABLE records ADD COLUMN " + ddl); err != nil {
			logger.L.Error("Error adding column to 'records' table", "column", name, "error", err)
		} else {
			logger.L.Info("Added column to 'records' table", "column", name)
		}
	}

	addColumn("discogs_id", "discogs_id TEXT")
	addColumn("discogs_genre", "discogs_genre TEXT")
	addColumn("consignor_id", "consignor_id INTEGER")
	addColumn("sold_at", "sold_at TIMESTAMP")
	addColumn("image_url", "image_url TEXT")
	addColumn("catalog_number", "catalog_number TEXT")
}

// seedStatuses inserts the fixed record lifecycle states on first run.
func seedStatuses() {
	for _, name := range []string{"intake", "priced", "on_floor", "on_hold", "sold", "returned"} {
		if _, err := DB.Exec("INSERT OR IGNORE INTO statuses (name) VALUES (?)", name); err != nil {
			if logger.L != nil {
				logger.L.Error("Error seeding status", "status", name, "error", err)
			}
		}
	}
}
