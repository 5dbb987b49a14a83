package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Sample is one labelled hand pose. Label is what the user said they were
// doing; Predicted is what the classifier said at capture time.
type Sample struct {
	ID        string                 `json:"id"`
	Label     gesture.Label          `json:"label"`
	Predicted gesture.Label          `json:"predicted"`
	Landmarks detector.HandLandmarks `json:"landmarks"`
	Score     float64                `json:"score"`
	CreatedAt time.Time              `json:"created_at"`
}

// SampleRepository provides CRUD operations for calibration samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts sample, assigning ID and CreatedAt when they are empty.
func (r *SampleRepository) Create(sample *Sample) error {
	if _, ok := gesture.ParseLabel(string(sample.Label)); !ok {
		return fmt.Errorf("unknown gesture label %q", sample.Label)
	}
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}

	landmarks, err := json.Marshal(sample.Landmarks)
	if err != nil {
		return fmt.Errorf("failed to encode landmarks: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO samples (id, label, predicted, landmarks, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sample.ID, string(sample.Label), string(sample.Predicted), string(landmarks), sample.Score, sample.CreatedAt,
	)
	return err
}

// Get retrieves a sample by ID.
func (r *SampleRepository) Get(id string) (*Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, label, predicted, landmarks, score, created_at FROM samples WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	samples, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNotFound
	}
	return &samples[0], nil
}

// List returns every sample, oldest first.
func (r *SampleRepository) List() ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, label, predicted, landmarks, score, created_at FROM samples ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return scanSamples(rows)
}

// ListByLabel returns the samples recorded for label, oldest first.
func (r *SampleRepository) ListByLabel(label gesture.Label) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, label, predicted, landmarks, score, created_at FROM samples
		 WHERE label = ? ORDER BY created_at, id`,
		string(label),
	)
	if err != nil {
		return nil, err
	}
	return scanSamples(rows)
}

// Delete removes a sample.
func (r *SampleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM samples WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored samples.
func (r *SampleRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}

func scanSamples(rows *sql.Rows) ([]Sample, error) {
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var label, predicted, landmarks string
		if err := rows.Scan(&s.ID, &label, &predicted, &landmarks, &s.Score, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Label = gesture.Label(label)
		s.Predicted = gesture.Label(predicted)
		if err := json.Unmarshal([]byte(landmarks), &s.Landmarks); err != nil {
			return nil, fmt.Errorf("sample %s: failed to decode landmarks: %w", s.ID, err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}
