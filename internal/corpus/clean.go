package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// AttachmentRule strips trailing attachment boilerplate from a speech.
// The default markers are a blunt pattern match and can clip legitimate
// text that happens to contain them; keep the rule swappable so a run
// can narrow or replace it.
type AttachmentRule struct {
	re *regexp.Regexp
}

// DefaultAttachmentRule matches the known attachment markers: a ****
// separator, "SEGUE(,) NA ÍNTEGRA(,) PRONUNCIAMENTO" and "DOCUMENTO
// ENCAMINHADO PELO/PELA", each optionally quoted, plus everything after.
func DefaultAttachmentRule() AttachmentRule {
	return AttachmentRule{re: regexp.MustCompile(
		`(?is)(?:` +
			`\*\*\*\*` +
			`|["“”]?\s*SEGUE,\s+NA\s+ÍNTEGRA,\s+PRONUNCIAMENTO["“”]?` +
			`|["“”]?\s*SEGUE\s+NA\s+ÍNTEGRA\s+PRONUNCIAMENTO["“”]?` +
			`|["“”]?\s*DOCUMENTO\s+ENCAMINHADO\s+PEL[OA]["“”]?` +
			`).*`,
	)}
}

// NewAttachmentRule builds a rule from a caller-supplied pattern.
func NewAttachmentRule(pattern string) (AttachmentRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return AttachmentRule{}, fmt.Errorf("compile attachment pattern: %w", err)
	}
	return AttachmentRule{re: re}, nil
}

// Clean removes attachment content from one text.
func (r AttachmentRule) Clean(text string) string {
	if r.re == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(r.re.ReplaceAllString(text, ""))
}

// CleanStats reports what one cleaning run touched.
type CleanStats struct {
	Examined  int
	Updated   int
	Unchanged int
}

// CleanOptions bound the cleaning pass. Zero values take defaults.
type CleanOptions struct {
	Table       string
	IDColumn    string
	TextColumn  string
	Where       string
	BatchSize   int
	CommitEvery int
}

func (o *CleanOptions) normalize() {
	if strings.TrimSpace(o.Table) == "" {
		o.Table = SpeechTable
	}
	if strings.TrimSpace(o.IDColumn) == "" {
		o.IDColumn = ColSpeechID
	}
	if strings.TrimSpace(o.TextColumn) == "" {
		o.TextColumn = ColText
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 5000
	}
	if o.CommitEvery <= 0 {
		o.CommitEvery = 20000
	}
}

// CleanAttachments rewrites the text column in place, batch by batch,
// updating only rows whose text actually changes. Commits happen every
// CommitEvery updates to bound transaction size on large corpora. This
// is the only path that mutates the source corpus, and it assumes
// single-writer access.
func (s *Store) CleanAttachments(ctx context.Context, rule AttachmentRule, opts CleanOptions) (CleanStats, error) {
	opts.normalize()

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA synchronous=NORMAL`,
		`PRAGMA temp_store=MEMORY`,
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return CleanStats{}, fmt.Errorf("set pragma: %w", err)
		}
	}

	query := fmt.Sprintf(`SELECT %s, %s FROM %s`, opts.IDColumn, opts.TextColumn, opts.Table)
	if strings.TrimSpace(opts.Where) != "" {
		query += " WHERE " + opts.Where
	}
	// Stable cursor by id; OFFSET pagination degrades on large tables.
	query += fmt.Sprintf(" ORDER BY %s ASC", opts.IDColumn)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return CleanStats{}, fmt.Errorf("query %s: %w", opts.Table, err)
	}
	defer rows.Close()

	type update struct {
		id   int64
		text string
	}

	var stats CleanStats
	updates := make([]update, 0, opts.BatchSize)
	pending := 0

	flush := func() error {
		if len(updates) == 0 {
			return nil
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin clean transaction: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			`UPDATE %s SET %s = ? WHERE %s = ?`,
			opts.Table, opts.TextColumn, opts.IDColumn,
		))
		if err != nil {
			return fmt.Errorf("prepare clean update: %w", err)
		}
		defer stmt.Close()

		for _, u := range updates {
			if _, err := stmt.ExecContext(ctx, u.text, u.id); err != nil {
				return fmt.Errorf("update speech %d: %w", u.id, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit clean batch: %w", err)
		}
		stats.Updated += len(updates)
		updates = updates[:0]
		pending = 0
		return nil
	}

	for rows.Next() {
		var id int64
		var text sql.NullString
		if err := rows.Scan(&id, &text); err != nil {
			return stats, fmt.Errorf("scan speech %d: %w", id, err)
		}
		stats.Examined++

		cleaned := rule.Clean(text.String)
		if cleaned == text.String {
			stats.Unchanged++
			continue
		}
		updates = append(updates, update{id: id, text: cleaned})
		pending++
		if pending >= opts.CommitEvery {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate %s: %w", opts.Table, err)
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
