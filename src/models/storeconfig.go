package models

import "database/sql"

// Store settings that operators may change at runtime live in the
// store_config key/value table; environment variables only provide the
// initial defaults.
const (
	ConfigMinStorePrice  = "MIN_STORE_PRICE"
	ConfigCommissionRate = "COMMISSION_RATE"
)

func GetConfigValue(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM store_config WHERE key = ?`, key).Scan(&value)
	return value, err
}

func SetConfigValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT INTO store_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func AllConfigValues(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM store_config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, rows.Err()
}
