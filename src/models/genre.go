package models

import "database/sql"

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Status struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func CreateGenre(db *sql.DB, g *Genre) error {
	res, err := db.Exec(`INSERT INTO genres (name) VALUES (?)`, g.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

func ListGenres(db *sql.DB) ([]Genre, error) {
	rows, err := db.Query(`SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func GetGenreByName(db *sql.DB, name string) (*Genre, error) {
	var g Genre
	err := db.QueryRow(`SELECT id, name FROM genres WHERE name = ? COLLATE NOCASE`, name).
		Scan(&g.ID, &g.Name)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func ListStatuses(db *sql.DB) ([]Status, error) {
	rows, err := db.Query(`SELECT id, name FROM statuses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// GetStatusIDByName resolves a lifecycle state name to its row id.
func GetStatusIDByName(db *sql.DB, name string) (int64, error) {
	var id int64
	err := db.QueryRow(`SELECT id FROM statuses WHERE name = ?`, name).Scan(&id)
	return id, err
}

// SaveGenreMapping records which store genre a Discogs genre string maps
// to, so catalog imports land in the right bin.
func SaveGenreMapping(db *sql.DB, discogsGenre string, genreID int64) error {
	_, err := db.Exec(`INSERT INTO discogs_genre_mappings (discogs_genre, genre_id) VALUES (?, ?)
		ON CONFLICT(discogs_genre) DO UPDATE SET genre_id = excluded.genre_id`, discogsGenre, genreID)
	return err
}

func GetGenreMapping(db *sql.DB, discogsGenre string) (int64, error) {
	var genreID int64
	err := db.QueryRow(`SELECT genre_id FROM discogs_genre_mappings WHERE discogs_genre = ?`,
		discogsGenre).Scan(&genreID)
	return genreID, err
}

func ListGenreMappings(db *sql.DB) (map[string]int64, error) {
	rows, err := db.Query(`SELECT discogs_genre, genre_id FROM discogs_genre_mappings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make(map[string]int64)
	for rows.Next() {
		var dg string
		var id int64
		if err := rows.Scan(&dg, &id); err != nil {
			return nil, err
		}
		mappings[dg] = id
	}
	return mappings, rows.Err()
}
