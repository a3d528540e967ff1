package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/curator/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.curator/data/curator.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".curator", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "curator.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// QualityStore returns a QualityStore interface backed by this store.
func (s *Store) QualityStore() driven.QualityStore {
	return &qualityStore{store: s}
}

// FeedbackStore returns a FeedbackStore interface backed by this store.
func (s *Store) FeedbackStore() driven.FeedbackStore {
	return &feedbackStore{store: s}
}

// ConflictStore returns a ConflictStore interface backed by this store.
func (s *Store) ConflictStore() driven.ConflictStore {
	return &conflictStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveChunks stores or updates chunks.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, page_id, page_title, url, content, type, position,
			char_count, parent_headers, space_key, doc_type, topics, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			page_id = excluded.page_id,
			page_title = excluded.page_title,
			url = excluded.url,
			content = excluded.content,
			type = excluded.type,
			position = excluded.position,
			char_count = excluded.char_count,
			parent_headers = excluded.parent_headers,
			space_key = excluded.space_key,
			doc_type = excluded.doc_type,
			topics = excluded.topics,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		headersJSON, err := json.Marshal(chunk.ParentHeaders)
		if err != nil {
			return fmt.Errorf("marshalling parent headers: %w", err)
		}
		topicsJSON, err := json.Marshal(chunk.Topics)
		if err != nil {
			return fmt.Errorf("marshalling topics: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.PageID,
			nullString(chunk.PageTitle), nullString(chunk.URL), chunk.Content,
			string(chunk.Type), chunk.Index, chunk.CharCount,
			string(headersJSON), chunk.SpaceKey, chunk.DocType, string(topicsJSON),
			formatNullableTime(chunk.CreatedAt), formatNullableTime(chunk.UpdatedAt)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const chunkColumns = `id, page_id, page_title, url, content, type, position,
	char_count, parent_headers, space_key, doc_type, topics, created_at, updated_at`

// GetChunk retrieves a chunk by ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)

	return scanChunkRow(row)
}

// ListByPage retrieves all chunks for a page ordered by position.
func (s *chunkStore) ListByPage(ctx context.Context, pageID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE page_id = ? ORDER BY position`, pageID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ListAll retrieves every stored chunk.
func (s *chunkStore) ListAll(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// DeleteChunk removes a chunk.
func (s *chunkStore) DeleteChunk(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	return nil
}

// DeleteByPage removes all chunks for a page.
func (s *chunkStore) DeleteByPage(ctx context.Context, pageID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE page_id = ?", pageID)
	if err != nil {
		return fmt.Errorf("deleting page chunks: %w", err)
	}
	return nil
}

// ==================== Quality Store ====================

// qualityStore implements driven.QualityStore.
type qualityStore struct {
	store *Store
}

var _ driven.QualityStore = (*qualityStore)(nil)

const qualityColumns = `chunk_id, score, feedback_count, access_count,
	last_accessed_at, status, status_changed_at, decayed_at, updated_at`

// Save stores or updates quality state.
func (s *qualityStore) Save(ctx context.Context, score domain.QualityScore) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO quality_scores (chunk_id, score, feedback_count, access_count,
			last_accessed_at, status, status_changed_at, decayed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			score = excluded.score,
			feedback_count = excluded.feedback_count,
			access_count = excluded.access_count,
			last_accessed_at = excluded.last_accessed_at,
			status = excluded.status,
			status_changed_at = excluded.status_changed_at,
			decayed_at = excluded.decayed_at,
			updated_at = excluded.updated_at
	`, score.ChunkID, score.Score, score.FeedbackCount, score.AccessCount,
		formatNullableTime(score.LastAccessedAt), string(score.Status),
		formatNullableTime(score.StatusChangedAt), formatNullableTime(score.DecayedAt),
		formatNullableTime(score.UpdatedAt))

	if err != nil {
		return fmt.Errorf("saving quality score: %w", err)
	}
	return nil
}

// Get retrieves the quality state for a chunk.
func (s *qualityStore) Get(ctx context.Context, chunkID string) (*domain.QualityScore, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+qualityColumns+` FROM quality_scores WHERE chunk_id = ?`, chunkID)

	return scanQualityRow(row)
}

// List retrieves all quality records.
func (s *qualityStore) List(ctx context.Context) ([]domain.QualityScore, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+qualityColumns+` FROM quality_scores`)
	if err != nil {
		return nil, fmt.Errorf("querying quality scores: %w", err)
	}
	defer rows.Close()

	return scanQualityScores(rows)
}

// ListByStatus retrieves records in a given lifecycle state.
func (s *qualityStore) ListByStatus(
	ctx context.Context, status domain.QualityStatus,
) ([]domain.QualityScore, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+qualityColumns+` FROM quality_scores WHERE status = ?`, string(status))
	if err != nil {
		return nil, fmt.Errorf("querying quality scores by status: %w", err)
	}
	defer rows.Close()

	return scanQualityScores(rows)
}

// Delete removes quality state for a chunk.
func (s *qualityStore) Delete(ctx context.Context, chunkID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM quality_scores WHERE chunk_id = ?", chunkID)
	if err != nil {
		return fmt.Errorf("deleting quality score: %w", err)
	}
	return nil
}

// ==================== Feedback Store ====================

// feedbackStore implements driven.FeedbackStore.
type feedbackStore struct {
	store *Store
}

var _ driven.FeedbackStore = (*feedbackStore)(nil)

// Append stores a new feedback event.
func (s *feedbackStore) Append(ctx context.Context, event domain.FeedbackEvent) error {
	if event.ID == "" || event.ChunkID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, chunk_id, user_id, type, comment, created_at, reviewed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.ChunkID, nullString(event.UserID), string(event.Type),
		nullString(event.Comment), formatNullableTime(event.CreatedAt),
		boolToInt(event.Reviewed))

	if err != nil {
		return fmt.Errorf("appending feedback: %w", err)
	}
	return nil
}

// ListByChunk retrieves all events for a chunk, newest first.
func (s *feedbackStore) ListByChunk(ctx context.Context, chunkID string) ([]domain.FeedbackEvent, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, chunk_id, user_id, type, comment, created_at, reviewed
		FROM feedback_events
		WHERE chunk_id = ?
		ORDER BY created_at DESC
	`, chunkID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var events []domain.FeedbackEvent //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.FeedbackEvent
		var userID, comment, createdAt sql.NullString
		var feedbackType string
		var reviewed int
		if err := rows.Scan(&e.ID, &e.ChunkID, &userID, &feedbackType,
			&comment, &createdAt, &reviewed); err != nil {
			return nil, fmt.Errorf("scanning feedback event: %w", err)
		}
		e.UserID = userID.String
		e.Type = domain.FeedbackType(feedbackType)
		e.Comment = comment.String
		e.CreatedAt = parseNullableTime(createdAt)
		e.Reviewed = reviewed == 1
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}

	return events, nil
}

// Stats summarises feedback counts for a chunk.
func (s *feedbackStore) Stats(ctx context.Context, chunkID string) (domain.FeedbackStats, error) {
	var stats domain.FeedbackStats
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN type != ? THEN 1 ELSE 0 END), 0)
		FROM feedback_events WHERE chunk_id = ?
	`, string(domain.FeedbackHelpful), chunkID).Scan(&stats.Total, &stats.Negative)
	if err != nil {
		return domain.FeedbackStats{}, fmt.Errorf("counting feedback: %w", err)
	}
	return stats, nil
}

// MarkReviewed sets the admin review flag on an event.
func (s *feedbackStore) MarkReviewed(ctx context.Context, eventID string) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE feedback_events SET reviewed = 1 WHERE id = ?", eventID)
	if err != nil {
		return fmt.Errorf("marking feedback reviewed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Conflict Store ====================

// conflictStore implements driven.ConflictStore.
type conflictStore struct {
	store *Store
}

var _ driven.ConflictStore = (*conflictStore)(nil)

const conflictColumns = `id, chunk_a, chunk_b, similarity, confidence,
	summary, status, detected_at, resolved_at`

// Save stores a new conflict. The pair is normalised before writing.
func (s *conflictStore) Save(ctx context.Context, conflict domain.Conflict) error {
	if conflict.ID == "" {
		return domain.ErrInvalidInput
	}

	a, b := domain.NormalisePair(conflict.ChunkIDA, conflict.ChunkIDB)

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conflicts (id, chunk_a, chunk_b, similarity, confidence,
			summary, status, detected_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, conflict.ID, a, b, conflict.Similarity, conflict.Confidence,
		nullString(conflict.Summary), string(conflict.Status),
		formatNullableTime(conflict.DetectedAt), formatNullableTime(conflict.ResolvedAt))

	if err != nil {
		return fmt.Errorf("saving conflict: %w", err)
	}
	return nil
}

// Get retrieves a conflict by ID.
func (s *conflictStore) Get(ctx context.Context, id string) (*domain.Conflict, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE id = ?`, id)

	return scanConflictRow(row)
}

// FindOpenPair returns the open conflict for a chunk pair, if any.
func (s *conflictStore) FindOpenPair(ctx context.Context, chunkIDA, chunkIDB string) (*domain.Conflict, error) {
	a, b := domain.NormalisePair(chunkIDA, chunkIDB)

	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts
		WHERE chunk_a = ? AND chunk_b = ? AND status = ?`,
		a, b, string(domain.ConflictOpen))

	return scanConflictRow(row)
}

// ListOpen retrieves all open conflicts, newest first.
func (s *conflictStore) ListOpen(ctx context.Context) ([]domain.Conflict, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts
		WHERE status = ? ORDER BY detected_at DESC`,
		string(domain.ConflictOpen))
	if err != nil {
		return nil, fmt.Errorf("querying conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []domain.Conflict //nolint:prealloc // size unknown from query
	for rows.Next() {
		conflict, err := scanConflictRows(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, *conflict)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conflicts: %w", err)
	}

	return conflicts, nil
}

// UpdateStatus closes a conflict.
func (s *conflictStore) UpdateStatus(ctx context.Context, id string, status domain.ConflictStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidInput
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE conflicts SET status = ?, resolved_at = ? WHERE id = ?
	`, string(status), formatNullableTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("updating conflict status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Helper Functions ====================

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var chunkType string
	var pageTitle, url, headersJSON, topicsJSON, spaceKey, docType, createdAt, updatedAt sql.NullString

	if err := row.Scan(&chunk.ID, &chunk.PageID, &pageTitle, &url, &chunk.Content,
		&chunkType, &chunk.Index, &chunk.CharCount, &headersJSON, &spaceKey,
		&docType, &topicsJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	if err := fillChunk(&chunk, chunkType, pageTitle, url, headersJSON, topicsJSON,
		spaceKey, docType, createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// scanChunks scans multiple chunk rows.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var chunkType string
		var pageTitle, url, headersJSON, topicsJSON, spaceKey, docType, createdAt, updatedAt sql.NullString

		if err := rows.Scan(&chunk.ID, &chunk.PageID, &pageTitle, &url, &chunk.Content,
			&chunkType, &chunk.Index, &chunk.CharCount, &headersJSON, &spaceKey,
			&docType, &topicsJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		if err := fillChunk(&chunk, chunkType, pageTitle, url, headersJSON, topicsJSON,
			spaceKey, docType, createdAt, updatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// fillChunk decodes the JSON and nullable columns into a chunk.
func fillChunk(
	chunk *domain.Chunk, chunkType string,
	pageTitle, url, headersJSON, topicsJSON, spaceKey, docType, createdAt, updatedAt sql.NullString,
) error {
	chunk.Type = domain.ChunkType(chunkType)
	chunk.PageTitle = pageTitle.String
	chunk.URL = url.String
	chunk.SpaceKey = spaceKey.String
	chunk.DocType = docType.String
	chunk.CreatedAt = parseNullableTime(createdAt)
	chunk.UpdatedAt = parseNullableTime(updatedAt)

	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &chunk.ParentHeaders); err != nil {
			return fmt.Errorf("unmarshalling parent headers: %w", err)
		}
	}
	if topicsJSON.Valid && topicsJSON.String != "" {
		if err := json.Unmarshal([]byte(topicsJSON.String), &chunk.Topics); err != nil {
			return fmt.Errorf("unmarshalling topics: %w", err)
		}
	}
	return nil
}

// scanQualityRow scans a quality score from *sql.Row.
func scanQualityRow(row *sql.Row) (*domain.QualityScore, error) {
	var score domain.QualityScore
	var status string
	var lastAccessed, statusChanged, decayedAt, updatedAt sql.NullString

	if err := row.Scan(&score.ChunkID, &score.Score, &score.FeedbackCount,
		&score.AccessCount, &lastAccessed, &status, &statusChanged,
		&decayedAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning quality score: %w", err)
	}

	score.Status = domain.QualityStatus(status)
	score.LastAccessedAt = parseNullableTime(lastAccessed)
	score.StatusChangedAt = parseNullableTime(statusChanged)
	score.DecayedAt = parseNullableTime(decayedAt)
	score.UpdatedAt = parseNullableTime(updatedAt)

	return &score, nil
}

// scanQualityScores scans multiple quality score rows.
func scanQualityScores(rows *sql.Rows) ([]domain.QualityScore, error) {
	var scores []domain.QualityScore //nolint:prealloc // size unknown from query
	for rows.Next() {
		var score domain.QualityScore
		var status string
		var lastAccessed, statusChanged, decayedAt, updatedAt sql.NullString

		if err := rows.Scan(&score.ChunkID, &score.Score, &score.FeedbackCount,
			&score.AccessCount, &lastAccessed, &status, &statusChanged,
			&decayedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning quality score: %w", err)
		}

		score.Status = domain.QualityStatus(status)
		score.LastAccessedAt = parseNullableTime(lastAccessed)
		score.StatusChangedAt = parseNullableTime(statusChanged)
		score.DecayedAt = parseNullableTime(decayedAt)
		score.UpdatedAt = parseNullableTime(updatedAt)

		scores = append(scores, score)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quality scores: %w", err)
	}

	return scores, nil
}

// scanConflictRow scans a conflict from *sql.Row.
func scanConflictRow(row *sql.Row) (*domain.Conflict, error) {
	var conflict domain.Conflict
	var status string
	var summary, detectedAt, resolvedAt sql.NullString

	if err := row.Scan(&conflict.ID, &conflict.ChunkIDA, &conflict.ChunkIDB,
		&conflict.Similarity, &conflict.Confidence, &summary, &status,
		&detectedAt, &resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning conflict: %w", err)
	}

	conflict.Summary = summary.String
	conflict.Status = domain.ConflictStatus(status)
	conflict.DetectedAt = parseNullableTime(detectedAt)
	conflict.ResolvedAt = parseNullableTime(resolvedAt)

	return &conflict, nil
}

// scanConflictRows scans a conflict from *sql.Rows.
func scanConflictRows(rows *sql.Rows) (*domain.Conflict, error) {
	var conflict domain.Conflict
	var status string
	var summary, detectedAt, resolvedAt sql.NullString

	if err := rows.Scan(&conflict.ID, &conflict.ChunkIDA, &conflict.ChunkIDB,
		&conflict.Similarity, &conflict.Confidence, &summary, &status,
		&detectedAt, &resolvedAt); err != nil {
		return nil, fmt.Errorf("scanning conflict: %w", err)
	}

	conflict.Summary = summary.String
	conflict.Status = domain.ConflictStatus(status)
	conflict.DetectedAt = parseNullableTime(detectedAt)
	conflict.ResolvedAt = parseNullableTime(resolvedAt)

	return &conflict, nil
}

// formatNullableTime formats a time to RFC3339 string, or returns nil for zero time.
func formatNullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

// parseNullableTime parses a nullable RFC3339 string to time.Time.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{} // Return zero time on parse error
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
