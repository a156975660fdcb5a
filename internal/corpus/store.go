package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// Word count approximation used by the eligibility filter: collapse
// control whitespace to spaces, reduce one level of double spaces, then
// count words as spaces + 1. The reduction is partial on purpose — the
// heuristic over/undercounts at tab and newline boundaries, and it must
// stay as-is so sample composition is reproducible across runs.
const eligibleByPartySQL = `
WITH base AS (
  SELECT
    CodigoPronunciamento,
    SiglaPartidoParlamentarNaData,
    CodigoParlamentar,
    TRIM(
      REPLACE(
        REPLACE(
          REPLACE(
            REPLACE(COALESCE(TextoIntegral, ''), CHAR(10), ' '),
          CHAR(13), ' '),
        CHAR(9), ' '),
      '  ', ' ')
    ) AS T
  FROM Discursos
)
SELECT
  CodigoPronunciamento,
  COALESCE(SiglaPartidoParlamentarNaData, 'SEM_PARTIDO') AS Partido,
  CodigoParlamentar
FROM base
WHERE
  (LENGTH(T) - LENGTH(REPLACE(T, ' ', ''))) + 1 > ?`

// Store wraps the read path of one corpus SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens an existing corpus database. A missing file is a fatal
// input error, reported before anything is touched.
func OpenStore(path string) (*Store, error) {
	db, err := openExisting(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance passes.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EligibleByParty returns eligible (speech, speaker) pairs grouped by
// party stratum. Rows with a NULL party land under NoPartyStratum.
func (s *Store) EligibleByParty(minWords int) (map[string][]EligiblePair, error) {
	rows, err := s.db.Query(eligibleByPartySQL, minWords)
	if err != nil {
		return nil, fmt.Errorf("query eligible speeches: %w", err)
	}
	defer rows.Close()

	strata := map[string][]EligiblePair{}
	for rows.Next() {
		var speechID int64
		var party string
		var speakerID sql.NullInt64
		if err := rows.Scan(&speechID, &party, &speakerID); err != nil {
			return nil, fmt.Errorf("scan eligible speech: %w", err)
		}
		strata[party] = append(strata[party], EligiblePair{
			SpeechID:  speechID,
			SpeakerID: speakerID.Int64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eligible speeches: %w", err)
	}
	return strata, nil
}

// TextsByYear reads all speeches, buckets them by speech year and keeps
// only those above the word threshold. Rows with an unparseable date are
// dropped. Note this path counts words in memory with WordCount, not the
// SQL approximation; the two policies are independent by design.
func (s *Store) TextsByYear(minWords int) ([]YearText, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT %s, %s, COALESCE(%s, '') FROM %s`,
		ColSpeechID, ColDate, ColText, SpeechTable,
	))
	if err != nil {
		return nil, fmt.Errorf("query speeches by year: %w", err)
	}
	defer rows.Close()

	var out []YearText
	for rows.Next() {
		var speechID int64
		var date sql.NullString
		var text string
		if err := rows.Scan(&speechID, &date, &text); err != nil {
			return nil, fmt.Errorf("scan speech: %w", err)
		}
		year, ok := parseYear(date.String)
		if !ok {
			continue
		}
		if WordCount(text) <= minWords {
			continue
		}
		out = append(out, YearText{SpeechID: speechID, Year: year, Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate speeches by year: %w", err)
	}
	return out, nil
}

// CopySampleWithJoin rebuilds the derived sample table in destPath with
// every corpus column plus the speaker display name left-joined from the
// senators database. The destination is overwritten. IDs are chunked
// into bounded IN (...) batches, each an implicit transaction, so a
// crash mid-run leaves a partial derived table and an untouched source
// corpus.
func (s *Store) CopySampleWithJoin(ctx context.Context, senatorsPath, destPath string, ids []int64, chunkSize int) error {
	if len(ids) == 0 {
		return fmt.Errorf("no speech ids to copy")
	}
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if _, err := os.Stat(senatorsPath); err != nil {
		return fmt.Errorf("senators database %q not found", senatorsPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create sample directory: %w", err)
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove previous sample db: %w", err)
	}

	// ATTACH is per-connection state; pin one connection so every chunk
	// sees both attached databases.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire corpus connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS sen_db`, senatorsPath); err != nil {
		return fmt.Errorf("attach senators db: %w", err)
	}
	defer conn.ExecContext(ctx, `DETACH DATABASE sen_db`)
	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS dest_db`, destPath); err != nil {
		return fmt.Errorf("attach sample db: %w", err)
	}
	defer conn.ExecContext(ctx, `DETACH DATABASE dest_db`)

	first := true
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		selectJoin := fmt.Sprintf(`
			SELECT d.*, s.NomeParlamentar
			FROM %s d
			LEFT JOIN sen_db.Senadores s
			  ON s.CodigoParlamentar = d.CodigoParlamentar
			WHERE d.CodigoPronunciamento IN (%s)`, SpeechTable, placeholders)

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		var stmt string
		if first {
			// CREATE TABLE AS SELECT carries the source schema over
			// without declaring it here; schemas vary between corpus
			// snapshots.
			stmt = fmt.Sprintf("CREATE TABLE dest_db.%s AS %s", SampleTable, selectJoin)
		} else {
			stmt = fmt.Sprintf("INSERT INTO dest_db.%s %s", SampleTable, selectJoin)
		}
		if _, err := conn.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("copy sample batch %d..%d: %w", start, end, err)
		}
		first = false
	}
	return nil
}

// SampledSpeeches reads the derived sample table. With shuffle set, rows
// come back in SQLite random order; limit of 0 means all rows.
func SampledSpeeches(samplePath string, limit int, shuffle bool) ([]SampledSpeech, error) {
	db, err := openExisting(samplePath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := fmt.Sprintf(`
		SELECT
			CodigoPronunciamento,
			COALESCE(NomeParlamentar, ''),
			COALESCE(SiglaPartidoParlamentarNaData, ''),
			COALESCE(DataPronunciamento, ''),
			COALESCE(TextoIntegral, '')
		FROM %s`, SampleTable)
	if shuffle {
		query += " ORDER BY random()"
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query sample table: %w", err)
	}
	defer rows.Close()

	var out []SampledSpeech
	for rows.Next() {
		var rec SampledSpeech
		if err := rows.Scan(&rec.SpeechID, &rec.SpeakerName, &rec.Party, &rec.Date, &rec.Text); err != nil {
			return nil, fmt.Errorf("scan sampled speech: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample table: %w", err)
	}
	return out, nil
}

func parseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1800 || year > 3000 {
		return 0, false
	}
	return year, true
}

func openExisting(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %q not found", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}
