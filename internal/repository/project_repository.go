package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mvickers/papercut/internal/models"
)

// snapshotRetention caps autosaves kept per project; older rows are pruned on
// each save.
const snapshotRetention = 100

// ProjectRepository persists editing sessions: one row per project plus a
// rolling set of sequence snapshots for autosave/restore.
type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// EnsureProject returns the id of the named project, creating it on first use.
func (r *ProjectRepository) EnsureProject(name string) (uuid.UUID, error) {
	id := uuid.New()
	err := r.db.QueryRow(`
		INSERT INTO projects (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
		RETURNING id`, id, name).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensure project %q: %w", name, err)
	}
	return id, nil
}

func (r *ProjectRepository) SetThreadID(projectID uuid.UUID, threadID string) error {
	_, err := r.db.Exec("UPDATE projects SET thread_id = $1, updated_at = NOW() WHERE id = $2",
		threadID, projectID)
	return err
}

func (r *ProjectRepository) ThreadID(projectID uuid.UUID) (string, error) {
	var threadID sql.NullString
	err := r.db.QueryRow("SELECT thread_id FROM projects WHERE id = $1", projectID).Scan(&threadID)
	if err != nil {
		return "", err
	}
	return threadID.String, nil
}

// SaveSnapshot stores the sequence as JSONB and prunes autosaves beyond the
// retention window.
func (r *ProjectRepository) SaveSnapshot(projectID uuid.UUID, seq models.Sequence) error {
	data, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("marshal sequence: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO sequence_snapshots (id, project_id, sequence, total_duration_ms)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), projectID, data, seq.TotalDurationMs())
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	r.db.Exec(`
		DELETE FROM sequence_snapshots WHERE id IN (
			SELECT id FROM sequence_snapshots
			WHERE project_id = $1
			ORDER BY created_at DESC
			OFFSET $2
		)`, projectID, snapshotRetention)
	return nil
}

// LatestSnapshot returns the most recent saved sequence, or nil when the
// project has none yet.
func (r *ProjectRepository) LatestSnapshot(projectID uuid.UUID) (*models.Sequence, error) {
	var data []byte
	err := r.db.QueryRow(`
		SELECT sequence FROM sequence_snapshots
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, projectID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var seq models.Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &seq, nil
}
