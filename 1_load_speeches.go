package sotu

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

// Speech represents one speech in the corpus
type Speech struct {
	ID        int    `json:"id"`
	Year      int    `json:"year"`
	President string `json:"president"`
	Filename  string `json:"filename"`
	RawText   string `json:"-"`
	CleanText string `json:"-"`
}

// Label returns the display label used on matrix rows and columns.
func (s Speech) Label() string {
	return fmt.Sprintf("%d %s", s.Year, s.President)
}

// Corpus files are named YEAR_President.txt, e.g. 1790_Washington.txt.
var speechFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.txt$`)

// LoadSpeechesCmd: Reads Config.CorpusDir, saves speeches into the database
var LoadSpeechesCmd = &cobra.Command{
	Use:   "load-speeches",
	Short: "Load the speech corpus into the database",
	Run: func(cmd *cobra.Command, args []string) {
		if err := loadAllSpeeches(); err != nil {
			log.Printf("Failed to load speeches: %v", err)
			return
		}
		log.Println("Corpus loading complete.")
	},
}

// loadAllSpeeches reads every corpus file and stores it with its metadata
func loadAllSpeeches() error {
	db, err := openSpeechDB()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	files, err := os.ReadDir(Config.CorpusDir)
	if err != nil {
		return fmt.Errorf("failed to read corpus directory: %w", err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		year, president, ok := parseSpeechFilename(file.Name())
		if !ok {
			log.Printf("Skipping %s: not a YEAR_President.txt corpus file", file.Name())
			continue
		}

		data, err := os.ReadFile(filepath.Join(Config.CorpusDir, file.Name()))
		if err != nil {
			log.Printf("Failed to read %s: %v", file.Name(), err)
			continue
		}

		if err := saveSpeech(db, year, president, file.Name(), string(data)); err != nil {
			log.Printf("Failed to save %s: %v", file.Name(), err)
			continue
		}
		loaded++
	}

	log.Printf("Loaded %d speeches into %s", loaded, Config.DatabasePath)
	return nil
}

// parseSpeechFilename extracts the year and president name from a corpus
// filename. Underscores in the name part separate words, e.g.
// 1945_Roosevelt.txt or 1790_Washington_2.txt.
func parseSpeechFilename(name string) (year int, president string, ok bool) {
	m := speechFilePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	president = strings.ReplaceAll(m[2], "_", " ")
	return year, president, true
}

// openSpeechDB opens the SQLite database and creates the speeches table
func openSpeechDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", Config.DatabasePath)
	if err != nil {
		return nil, err
	}

	// Create table if not exists
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS speeches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		president TEXT NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		raw_text TEXT NOT NULL,
		clean_text TEXT NOT NULL DEFAULT '',
		loaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_year ON speeches(year);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
		return nil, err
	}

	return db, nil
}

// saveSpeech inserts or replaces a speech keyed by its corpus filename
func saveSpeech(db *sql.DB, year int, president, filename, rawText string) error {
	insertSQL := `
	INSERT INTO speeches (year, president, filename, raw_text)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(filename) DO UPDATE SET
		year = excluded.year,
		president = excluded.president,
		raw_text = excluded.raw_text
	`

	if _, err := db.Exec(insertSQL, year, president, filename, rawText); err != nil {
		return fmt.Errorf("failed to insert speech: %w", err)
	}

	return nil
}

// loadSpeeches loads all speeches from the database in corpus order
func loadSpeeches(db *sql.DB) ([]Speech, error) {
	query := `
	SELECT id, year, president, filename, raw_text, clean_text
	FROM speeches
	ORDER BY year, filename
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	var speeches []Speech
	for rows.Next() {
		var s Speech
		if err := rows.Scan(&s.ID, &s.Year, &s.President, &s.Filename, &s.RawText, &s.CleanText); err != nil {
			return nil, err
		}
		speeches = append(speeches, s)
	}

	return speeches, rows.Err()
}
