package sotu

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanSpeechesCmd: Normalizes raw_text of every stored speech into clean_text
var CleanSpeechesCmd = &cobra.Command{
	Use:   "clean-speeches",
	Short: "Normalize speech text for similarity comparison",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cleanAllSpeeches(); err != nil {
			log.Printf("Failed to clean speeches: %v", err)
			return
		}
		log.Println("Speech cleaning complete.")
	},
}

// cleanAllSpeeches normalizes every speech in parallel and persists the result
func cleanAllSpeeches() error {
	db, err := openSpeechDB()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	speeches, err := loadSpeeches(db)
	if err != nil {
		return fmt.Errorf("failed to load speeches: %w", err)
	}
	if len(speeches) == 0 {
		return fmt.Errorf("no speeches in database, run load-speeches first")
	}

	cleaned := make([]string, len(speeches))
	var wg sync.WaitGroup
	for i := range speeches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cleaned[i] = cleanText(speeches[i].RawText)
		}(i)
	}
	wg.Wait()

	// SQLite serializes writers, so persist sequentially after the fan-out.
	for i, s := range speeches {
		if _, err := db.Exec("UPDATE speeches SET clean_text = ? WHERE id = ?", cleaned[i], s.ID); err != nil {
			return fmt.Errorf("failed to update speech %s: %w", s.Filename, err)
		}
	}

	log.Printf("Cleaned %d speeches", len(speeches))
	return nil
}

// CleanTexts normalizes a sequence of raw documents. The output has the same
// length and order as the input: lowercased, punctuation and control characters
// removed, combining marks stripped, English stopwords dropped, whitespace
// collapsed to single spaces.
func CleanTexts(docs []string) []string {
	cleaned := make([]string, len(docs))
	for i, doc := range docs {
		cleaned[i] = cleanText(doc)
	}
	return cleaned
}

// cleanText normalizes a single document
func cleanText(text string) string {
	text = strings.ToLower(text)
	text = stripMarks(text)

	// Replace everything except letters and digits with spaces so that
	// punctuation never glues adjacent words together.
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var kept []string
	for _, w := range strings.Fields(b.String()) {
		w = strings.Trim(w, "'")
		if w == "" || IsStopword(w) {
			continue
		}
		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}

// stripMarks removes combining marks (accents) after NFD decomposition
func stripMarks(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}
