// Package reviews archives scraped reviews as one CSV file per calendar
// date, the layout the dashboard's date picker and the categorize-by-date
// flows are built around.
package reviews

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"insitegent/internal/inputprocessor"
	"insitegent/internal/models"
	"insitegent/internal/store"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{"reviewId", "content", "score", "userName", "at"}

// Archive is a directory of YYYY-MM-DD.csv files. Appends are serialized
// with a mutex; rows are deduplicated by review ID within a date.
type Archive struct {
	dir  string
	proc inputprocessor.Processor
	mu   sync.Mutex
}

// NewArchive returns an Archive rooted at dir. The directory is created
// lazily on first append.
func NewArchive(dir string, proc inputprocessor.Processor) *Archive {
	return &Archive{dir: dir, proc: proc}
}

// Append adds reviews to the date's file, skipping IDs already archived
// there, and returns the number actually written.
func (a *Archive) Append(ctx context.Context, date string, reviews []models.Review) (int, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return 0, fmt.Errorf("invalid archive date '%s': %w", date, store.ErrInvalidInput)
	}
	if len(reviews) == 0 {
		return 0, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0750); err != nil {
		return 0, fmt.Errorf("failed to create reviews directory '%s': %w", a.dir, err)
	}

	path := a.pathFor(date)
	seen := map[uuid.UUID]struct{}{}
	isNew := false
	existing, err := a.readFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return 0, err
		}
		isNew = true
	}
	for _, r := range existing {
		seen[r.ID] = struct{}{}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive file '%s': %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(csvHeader); err != nil {
			return 0, fmt.Errorf("failed to write archive header: %w", err)
		}
	}

	added := 0
	for _, r := range reviews {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		if err := w.Write(recordFor(r)); err != nil {
			return added, fmt.Errorf("failed to write review row: %w", err)
		}
		added++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return added, fmt.Errorf("failed to flush archive file '%s': %w", path, err)
	}

	log.WithFields(log.Fields{
		"date":  date,
		"added": added,
		"total": len(seen),
	}).Debug("archived reviews")
	return added, nil
}

// AvailableDates lists the archived dates, newest first. Files whose names
// are not dates are skipped.
func (a *Archive) AvailableDates(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read reviews directory '%s': %w", a.dir, err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		date := strings.TrimSuffix(name, ".csv")
		if _, err := time.Parse(dateLayout, date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// LoadByDate returns the archived reviews for a date, in file order.
func (a *Archive) LoadByDate(ctx context.Context, date string) ([]models.Review, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid archive date '%s': %w", date, store.ErrInvalidInput)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	reviews, err := a.readFile(a.pathFor(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return reviews, nil
}

func (a *Archive) pathFor(date string) string {
	return filepath.Join(a.dir, date+".csv")
}

// readFile parses one archive file. Parsing is header-driven so files
// written by earlier tooling with extra columns still load. Callers must
// hold a.mu (or be constructing the archive).
func (a *Archive) readFile(path string) ([]models.Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive file '%s': %w", path, err)
	}
	if len(rows) == 0 {
		return []models.Review{}, nil
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	raws := make([]inputprocessor.RawReview, 0, len(rows)-1)
	for _, row := range rows[1:] {
		raws = append(raws, inputprocessor.RawReview{
			ID:       field(row, "reviewId"),
			Content:  field(row, "content"),
			Score:    field(row, "score"),
			UserName: field(row, "userName"),
			At:       field(row, "at"),
		})
	}
	return a.proc.ProcessAll(raws), nil
}

func recordFor(r models.Review) []string {
	at := ""
	if !r.At.IsZero() {
		at = r.At.Format(time.RFC3339)
	}
	return []string{
		r.ID.String(),
		r.Content,
		strconv.Itoa(r.Score),
		r.UserName,
		at,
	}
}

var _ store.ReviewArchive = (*Archive)(nil)
