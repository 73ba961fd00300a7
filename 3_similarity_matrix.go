package sotu

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidArgument is returned when labels or selection fail validation.
	// No similarity computation happens once validation fails.
	ErrInvalidArgument = errors.New("sotu: invalid argument")

	// ErrInterrupted is returned when the context is cancelled before the
	// matrix is fully populated. No partial matrix is returned.
	ErrInterrupted = errors.New("sotu: matrix build interrupted")
)

// CellError reports a metric failure for a single matrix cell.
type CellError struct {
	Row, Col int
	Err      error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("sotu: similarity failed at row %d, col %d: %v", e.Row, e.Col, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// SimilarityMatrix is a labeled pairwise similarity matrix. Rows always span
// the full document collection; columns span either the full collection
// (square case) or the selected subset (rectangular case). It is immutable
// once returned.
type SimilarityMatrix struct {
	RowLabels []string
	ColLabels []string
	Data      *mat.Dense
}

// At returns the similarity score at the given row and column.
func (m *SimilarityMatrix) At(r, c int) float64 { return m.Data.At(r, c) }

// Dims returns the row and column counts.
func (m *SimilarityMatrix) Dims() (rows, cols int) { return m.Data.Dims() }

// IsSquare reports whether rows and columns span the same document set.
func (m *SimilarityMatrix) IsSquare() bool {
	r, c := m.Data.Dims()
	return r == c
}

// MatrixOptions configures BuildSimilarityMatrix.
//   - Labels: one label per document; nil means positional indices.
//   - Selection: distinct document indices forming the columns; nil means all.
//   - Metric: similarity comparator; nil means JaroWinkler.
//   - Workers: column-level parallelism; values below 1 mean GOMAXPROCS.
type MatrixOptions struct {
	Labels    []string
	Selection []int
	Metric    Metric
	Workers   int
}

// BuildSimilarityMatrix computes the pairwise similarity matrix over cleaned
// documents. Each output column is filled in one pass: the column's source
// document is compared against every document in the collection, so even in
// the rectangular case a selected document's self comparison is present in
// its column (the row whose label equals the column label).
//
// Cost is one metric call per cell, and each call is proportional to the
// product of the two document lengths. A full run over the complete corpus
// takes hours; use Selection for interactive work.
func BuildSimilarityMatrix(ctx context.Context, docs []string, opts MatrixOptions) (*SimilarityMatrix, error) {
	n := len(docs)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty document collection", ErrInvalidArgument)
	}

	labels := opts.Labels
	if labels == nil {
		labels = make([]string, n)
		for i := range labels {
			labels[i] = strconv.Itoa(i)
		}
	}
	if len(labels) != n {
		return nil, fmt.Errorf("%w: label length mismatch (%d labels for %d documents)",
			ErrInvalidArgument, len(labels), n)
	}

	selection := opts.Selection
	if selection == nil {
		selection = make([]int, n)
		for i := range selection {
			selection[i] = i
		}
	}
	seen := make([]bool, n)
	for _, idx := range selection {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("%w: selection index out of bounds (%d not in [0, %d))",
				ErrInvalidArgument, idx, n)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate selection index %d", ErrInvalidArgument, idx)
		}
		seen[idx] = true
	}

	metric := opts.Metric
	if metric == nil {
		metric = JaroWinkler
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(selection) {
		workers = len(selection)
	}

	rowLabels := append([]string(nil), labels...)
	colLabels := make([]string, len(selection))
	for c, src := range selection {
		colLabels[c] = labels[src]
	}

	data := mat.NewDense(n, len(selection), nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		firstErr error
		errOnce  sync.Once
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	cols := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range cols {
				if ctx.Err() != nil {
					return
				}
				src := selection[c]
				for r := 0; r < n; r++ {
					score, err := metric(docs[r], docs[src])
					if err != nil {
						fail(&CellError{Row: r, Col: c, Err: err})
						return
					}
					// Each cell belongs to exactly one column, so
					// workers never write the same cell.
					data.Set(r, c, score)
				}
			}
		}()
	}

feed:
	for c := range selection {
		select {
		case cols <- c:
		case <-ctx.Done():
			break feed
		}
	}
	close(cols)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	return &SimilarityMatrix{RowLabels: rowLabels, ColLabels: colLabels, Data: data}, nil
}

var matrixSelect string

func init() {
	BuildMatrixCmd.Flags().StringVar(&matrixSelect, "select", "",
		"comma-separated speech indices; builds a rectangular matrix over the selected columns")
}

// BuildMatrixCmd: Builds the pairwise similarity matrix over cleaned speeches
var BuildMatrixCmd = &cobra.Command{
	Use:   "build-matrix",
	Short: "Build the pairwise similarity matrix",
	Run: func(cmd *cobra.Command, args []string) {
		if err := buildMatrixForCorpus(); err != nil {
			log.Printf("Failed to build similarity matrix: %v", err)
			return
		}
		log.Println("Similarity matrix complete.")
	},
}

// buildMatrixForCorpus loads cleaned speeches, builds the matrix and stores it
func buildMatrixForCorpus() error {
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

	docs := make([]string, len(speeches))
	labels := make([]string, len(speeches))
	for i, s := range speeches {
		if s.CleanText == "" {
			return fmt.Errorf("speech %s has no cleaned text, run clean-speeches first", s.Filename)
		}
		docs[i] = s.CleanText
		labels[i] = s.Label()
	}

	selection, err := parseSelection(matrixSelect)
	if err != nil {
		return err
	}

	name := "full"
	shape := fmt.Sprintf("%dx%d", len(docs), len(docs))
	if selection != nil {
		name = "selection"
		shape = fmt.Sprintf("%dx%d", len(docs), len(selection))
	}
	log.Printf("Building %s similarity matrix over %d speeches (quadratic cost, the full corpus takes hours)...",
		shape, len(docs))

	start := time.Now()
	matrix, err := BuildSimilarityMatrix(context.Background(), docs, MatrixOptions{
		Labels:    labels,
		Selection: selection,
	})
	if err != nil {
		return err
	}
	log.Printf("Computed %s matrix in %s", shape, time.Since(start).Round(time.Second))

	if err := saveMatrix(db, name, matrix); err != nil {
		return fmt.Errorf("failed to save matrix: %w", err)
	}
	log.Printf("Saved matrix %q to %s", name, Config.DatabasePath)

	return nil
}

// parseSelection parses the --select flag into column indices
func parseSelection(value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	selection := make([]int, 0, len(parts))
	for _, p := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid selection index %q", ErrInvalidArgument, p)
		}
		selection = append(selection, idx)
	}
	return selection, nil
}

// initMatrixTable creates the matrices table
func initMatrixTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS matrices (
		name TEXT PRIMARY KEY,
		row_labels_json TEXT NOT NULL,
		col_labels_json TEXT NOT NULL,
		cells_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(createTableSQL)
	return err
}

// saveMatrix stores a similarity matrix under a name, replacing any previous one
func saveMatrix(db *sql.DB, name string, m *SimilarityMatrix) error {
	if err := initMatrixTable(db); err != nil {
		return fmt.Errorf("failed to create matrices table: %w", err)
	}

	rowJSON, err := json.Marshal(m.RowLabels)
	if err != nil {
		return fmt.Errorf("failed to marshal row labels: %w", err)
	}
	colJSON, err := json.Marshal(m.ColLabels)
	if err != nil {
		return fmt.Errorf("failed to marshal column labels: %w", err)
	}

	rows, cols := m.Dims()
	cells := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		cells[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			cells[r][c] = m.At(r, c)
		}
	}
	cellsJSON, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("failed to marshal cells: %w", err)
	}

	insertSQL := `
	INSERT INTO matrices (name, row_labels_json, col_labels_json, cells_json)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		row_labels_json = excluded.row_labels_json,
		col_labels_json = excluded.col_labels_json,
		cells_json = excluded.cells_json,
		created_at = CURRENT_TIMESTAMP
	`
	if _, err := db.Exec(insertSQL, name, string(rowJSON), string(colJSON), string(cellsJSON)); err != nil {
		return fmt.Errorf("failed to insert matrix: %w", err)
	}

	return nil
}

// loadMatrix loads a stored similarity matrix by name
func loadMatrix(db *sql.DB, name string) (*SimilarityMatrix, error) {
	var rowJSON, colJSON, cellsJSON string
	err := db.QueryRow(
		"SELECT row_labels_json, col_labels_json, cells_json FROM matrices WHERE name = ?", name,
	).Scan(&rowJSON, &colJSON, &cellsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to load matrix %q: %w", name, err)
	}

	var rowLabels, colLabels []string
	if err := json.Unmarshal([]byte(rowJSON), &rowLabels); err != nil {
		return nil, fmt.Errorf("failed to parse row labels: %w", err)
	}
	if err := json.Unmarshal([]byte(colJSON), &colLabels); err != nil {
		return nil, fmt.Errorf("failed to parse column labels: %w", err)
	}

	var cells [][]float64
	if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
		return nil, fmt.Errorf("failed to parse cells: %w", err)
	}
	if len(cells) != len(rowLabels) {
		return nil, fmt.Errorf("matrix %q has %d cell rows for %d labels", name, len(cells), len(rowLabels))
	}

	data := mat.NewDense(len(rowLabels), len(colLabels), nil)
	for r, row := range cells {
		if len(row) != len(colLabels) {
			return nil, fmt.Errorf("matrix %q row %d has %d cells for %d columns", name, r, len(row), len(colLabels))
		}
		data.SetRow(r, row)
	}

	return &SimilarityMatrix{RowLabels: rowLabels, ColLabels: colLabels, Data: data}, nil
}
