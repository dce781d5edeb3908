package project

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrSceneNotFound   = errors.New("scene not found")
	ErrChapterNotFound = errors.New("chapter not found")
)

// Store handles persistence of chapters and scenes using SQLite. Writes are
// durable when the call returns; the mutex makes the single-writer discipline
// of a batch run explicit instead of relying on caller scheduling.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a SQLite-backed project store at the given path.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// init creates the necessary tables if they don't exist
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chapters (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			position   INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS scenes (
			id            TEXT PRIMARY KEY,
			chapter_id    TEXT NOT NULL,
			name          TEXT NOT NULL,
			position      INTEGER NOT NULL,
			body          TEXT NOT NULL DEFAULT '',
			summary       TEXT NOT NULL DEFAULT '',
			pov           TEXT NOT NULL DEFAULT '',
			pov_character TEXT NOT NULL DEFAULT '',
			tense         TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,
			FOREIGN KEY (chapter_id) REFERENCES chapters(id)
		);

		CREATE INDEX IF NOT EXISTS idx_scenes_chapter ON scenes(chapter_id, position);
	`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path-independent handle for siblings (schedule store shares the file).
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateChapter appends a new chapter after the existing ones.
func (s *Store) CreateChapter(name string) (*Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pos int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(position), 0) + 1 FROM chapters`).Scan(&pos); err != nil {
		return nil, fmt.Errorf("failed to compute chapter position: %w", err)
	}

	ch := &Chapter{ID: uuid.NewString(), Name: name, Position: pos}
	_, err := s.db.Exec(
		`INSERT INTO chapters (id, name, position, created_at) VALUES (?, ?, ?, ?)`,
		ch.ID, ch.Name, ch.Position, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chapter: %w", err)
	}
	return ch, nil
}

// ListChapters returns all chapters in order.
func (s *Store) ListChapters() ([]Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, position FROM chapters ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	var out []Chapter
	for rows.Next() {
		var ch Chapter
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Position); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// FindChapter resolves a chapter by id or, failing that, by exact name.
func (s *Store) FindChapter(ref string) (*Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ch Chapter
	err := s.db.QueryRow(
		`SELECT id, name, position FROM chapters WHERE id = ? OR name = ? ORDER BY position LIMIT 1`,
		ref, ref,
	).Scan(&ch.ID, &ch.Name, &ch.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChapterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chapter: %w", err)
	}
	return &ch, nil
}

// CreateScene appends a scene to a chapter.
func (s *Store) CreateScene(chapterID, name, body string) (*Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM chapters WHERE id = ?`, chapterID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check chapter: %w", err)
	}
	if exists == 0 {
		return nil, ErrChapterNotFound
	}

	var pos int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(position), 0) + 1 FROM scenes WHERE chapter_id = ?`, chapterID,
	).Scan(&pos); err != nil {
		return nil, fmt.Errorf("failed to compute scene position: %w", err)
	}

	now := time.Now().UTC()
	sc := &Scene{
		ID:        uuid.NewString(),
		ChapterID: chapterID,
		Name:      name,
		Position:  pos,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO scenes (id, chapter_id, name, position, body, summary, pov, pov_character, tense, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, '', '', '', '', ?, ?)`,
		sc.ID, sc.ChapterID, sc.Name, sc.Position, sc.Body,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scene: %w", err)
	}
	return sc, nil
}

// LoadScene loads a single scene by id.
func (s *Store) LoadScene(id string) (*Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadScene(id)
}

func (s *Store) loadScene(id string) (*Scene, error) {
	row := s.db.QueryRow(
		`SELECT id, chapter_id, name, position, body, summary, pov, pov_character, tense, created_at, updated_at
		 FROM scenes WHERE id = ?`, id,
	)
	sc, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSceneNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}
	return sc, nil
}

// SaveScene persists every mutable field of the scene.
func (s *Store) SaveScene(sc *Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE scenes SET name = ?, position = ?, body = ?, summary = ?, pov = ?, pov_character = ?, tense = ?, updated_at = ?
		 WHERE id = ?`,
		sc.Name, sc.Position, sc.Body, sc.Summary, sc.POV, sc.POVCharacter, sc.Tense,
		sc.UpdatedAt.Format(time.RFC3339), sc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save scene: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrSceneNotFound
	}
	return nil
}

// SaveSummary writes only the summary field. Used by the orchestrator after a
// completed stream; the write is durable when this returns.
func (s *Store) SaveSummary(sceneID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE scenes SET summary = ?, updated_at = ? WHERE id = ?`,
		summary, time.Now().UTC().Format(time.RFC3339), sceneID,
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrSceneNotFound
	}
	return nil
}

// LoadChapterScenes returns a chapter's scenes in order.
func (s *Store) LoadChapterScenes(chapterID string) ([]*Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, chapter_id, name, position, body, summary, pov, pov_character, tense, created_at, updated_at
		 FROM scenes WHERE chapter_id = ? ORDER BY position`, chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load chapter scenes: %w", err)
	}
	defer rows.Close()

	var out []*Scene
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ChapterSummary recomputes the chapter's displayed summary by concatenating
// child scene summaries in order. It is a pure view over current scene state;
// nothing chapter-level is ever stored.
func (s *Store) ChapterSummary(chapterID string) (string, error) {
	scenes, err := s.LoadChapterScenes(chapterID)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, sc := range scenes {
		if strings.TrimSpace(sc.Summary) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(sc.Summary))
	}
	return strings.Join(parts, "\n\n"), nil
}

// DeleteScene removes a scene.
func (s *Store) DeleteScene(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scene: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrSceneNotFound
	}
	return nil
}

// SceneCount returns the number of scenes in the project.
func (s *Store) SceneCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM scenes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scenes: %w", err)
	}
	return n, nil
}

// scanner interface for both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanScene(row scanner) (*Scene, error) {
	var sc Scene
	var createdAt, updatedAt string
	err := row.Scan(
		&sc.ID, &sc.ChapterID, &sc.Name, &sc.Position, &sc.Body, &sc.Summary,
		&sc.POV, &sc.POVCharacter, &sc.Tense, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	sc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &sc, nil
}
