package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// threadStore implements driven.ThreadStore and driven.ThreadQueryExecutor.
type threadStore struct {
	store *Store
}

var (
	_ driven.ThreadStore         = (*threadStore)(nil)
	_ driven.ThreadQueryExecutor = (*threadStore)(nil)
)

const threadColumns = `t.id, t.account_id, t.subject, t.snippet, t.participants, t.last_message_at, t.unread`

// SaveThreads stores or updates threads in a single transaction.
func (s *threadStore) SaveThreads(ctx context.Context, threads []domain.Thread) error {
	if len(threads) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO threads (id, account_id, subject, snippet, participants, sender, recipients, last_message_at, unread)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			subject = excluded.subject,
			snippet = excluded.snippet,
			participants = excluded.participants,
			sender = excluded.sender,
			recipients = excluded.recipients,
			last_message_at = excluded.last_message_at,
			unread = excluded.unread
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range threads {
		t := &threads[i]
		if t.ID == "" {
			return fmt.Errorf("saving thread: %w: empty id", domain.ErrInvalidInput)
		}
		participants := t.Participants
		if participants == nil {
			participants = []string{}
		}
		participantsJSON, err := json.Marshal(participants)
		if err != nil {
			return fmt.Errorf("marshalling participants: %w", err)
		}
		sender, recipients := splitParticipants(participants)

		if _, err := stmt.ExecContext(ctx, t.ID, t.AccountID, t.Subject, t.Snippet,
			string(participantsJSON), sender, recipients, t.LastMessageAt.UnixNano(), boolToInt(t.Unread)); err != nil {
			return fmt.Errorf("saving thread %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetThread retrieves a thread by ID.
func (s *threadStore) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+threadColumns+` FROM threads t WHERE t.id = ?`, id)

	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting thread: %w", err)
	}
	return t, nil
}

// DeleteThread removes a thread.
func (s *threadStore) DeleteThread(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns up to limit threads, most recent first.
func (s *threadStore) ListRecent(ctx context.Context, limit int) ([]domain.Thread, error) {
	return s.Query(ctx, domain.ThreadQuery{OrderBy: domain.OrderLastMessageDesc, Limit: limit})
}

// Query executes a local search.
func (s *threadStore) Query(ctx context.Context, q domain.ThreadQuery) ([]domain.Thread, error) {
	query, args, err := buildThreadQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	var threads []domain.Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		threads = append(threads, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating threads: %w", err)
	}
	return threads, nil
}

// buildThreadQuery compiles a ThreadQuery into SQL.
func buildThreadQuery(q domain.ThreadQuery) (string, []any, error) {
	var (
		where []string
		args  []any
	)

	if q.IDs != nil {
		if len(q.IDs) == 0 {
			where = append(where, "0")
		} else {
			where = append(where, "t.id IN ("+placeholders(len(q.IDs))+")")
			for _, id := range q.IDs {
				args = append(args, id)
			}
		}
	}
	if q.AccountID != "" {
		where = append(where, "t.account_id = ?")
		args = append(args, q.AccountID)
	}

	switch f := q.Filter.(type) {
	case nil:
	case *domain.TextFilter:
		like := likePattern(f.Text)
		where = append(where, `(t.subject LIKE ? ESCAPE '\' OR t.snippet LIKE ? ESCAPE '\' OR t.participants LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	case *domain.Filter:
		w, a := compileFilter(f)
		where = append(where, w...)
		args = append(args, a...)
	default:
		return "", nil, fmt.Errorf("%w: unsupported filter %T", domain.ErrInvalidInput, q.Filter)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(threadColumns)
	b.WriteString(" FROM threads t")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY t.last_message_at DESC, t.id ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args, nil
}

// compileFilter turns a structured filter into WHERE clauses. Terms and
// phrases go through the FTS index; fielded constraints use LIKE.
func compileFilter(f *domain.Filter) ([]string, []any) {
	var (
		where []string
		args  []any
	)

	var match []string
	for _, term := range f.Terms {
		match = append(match, ftsQuote(term)+"*")
	}
	for _, phrase := range f.Phrases {
		match = append(match, ftsQuote(phrase))
	}
	if len(match) > 0 {
		where = append(where, "t.rowid IN (SELECT rowid FROM threads_fts WHERE threads_fts MATCH ?)")
		args = append(args, strings.Join(match, " "))
	}
	for _, ex := range f.Excluded {
		where = append(where, "t.rowid NOT IN (SELECT rowid FROM threads_fts WHERE threads_fts MATCH ?)")
		args = append(args, ftsQuote(ex)+"*")
	}

	for _, fm := range f.Fields {
		var column string
		switch fm.Field {
		case domain.FieldFrom:
			column = "t.sender"
		case domain.FieldTo:
			column = "t.recipients"
		case domain.FieldSubject:
			column = "t.subject"
		default:
			continue
		}
		op := "LIKE"
		if fm.Negated {
			op = "NOT LIKE"
		}
		where = append(where, column+" "+op+` ? ESCAPE '\'`)
		args = append(args, likePattern(fm.Value))
	}

	if len(f.Accounts) > 0 {
		where = append(where, "t.account_id IN ("+placeholders(len(f.Accounts))+")")
		for _, a := range f.Accounts {
			args = append(args, a)
		}
	}
	if f.Unread != nil {
		where = append(where, "t.unread = ?")
		args = append(args, boolToInt(*f.Unread))
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (*domain.Thread, error) {
	var (
		t                domain.Thread
		participantsJSON string
		lastMessageAt    int64
		unread           int
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.Subject, &t.Snippet,
		&participantsJSON, &lastMessageAt, &unread); err != nil {
		return nil, err
	}
	if participantsJSON != "" && participantsJSON != jsonNull {
		if err := json.Unmarshal([]byte(participantsJSON), &t.Participants); err != nil {
			return nil, fmt.Errorf("unmarshalling participants: %w", err)
		}
	}
	if len(t.Participants) == 0 {
		t.Participants = nil
	}
	t.LastMessageAt = time.Unix(0, lastMessageAt).UTC()
	t.Unread = unread != 0
	return &t, nil
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"

func splitParticipants(participants []string) (sender, recipients string) {
	if len(participants) == 0 {
		return "", ""
	}
	return participants[0], strings.Join(participants[1:], ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ftsQuote quotes s as an FTS5 string, doubling embedded quotes.
func ftsQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// likePattern builds a %contains% pattern with LIKE wildcards escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
