// Package journal persists every envelope crossing the bridge channel in
// SQLite and replays a session's inbound messages in arrival order.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dbopen"
	"github.com/hazyhaar/treebridge/idgen"
)

// Schema for the messages table. Rowid order is arrival order.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	direction   TEXT NOT NULL,
	type        TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, direction);
`

// Direction is the side of the channel a message travelled.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Entry is one journaled envelope.
type Entry struct {
	ID        string
	SessionID string
	Direction Direction
	Type      string
	Payload   string
	CreatedAt time.Time
}

// Journal records envelopes for one bridge session.
type Journal struct {
	db      *sql.DB
	owned   bool
	session string
	newID   idgen.Generator
	logger  *slog.Logger
}

// Option configures a Journal.
type Option func(*Journal)

// WithSession sets the session id entries are recorded under.
func WithSession(id string) Option {
	return func(j *Journal) { j.session = id }
}

// WithIDGenerator sets a custom generator for entry ids.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(j *Journal) { j.newID = gen }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// Open opens (creating if needed) the journal database at path.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	j := New(db, opts...)
	j.owned = true
	return j, nil
}

// New wraps an already-open database whose schema includes Schema.
func New(db *sql.DB, opts ...Option) *Journal {
	j := &Journal{
		db:     db,
		newID:  idgen.Prefixed("msg_", idgen.Default),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(j)
	}
	if j.session == "" {
		j.session = idgen.Prefixed("ses_", idgen.Default)()
	}
	return j
}

// Session returns the session id.
func (j *Journal) Session() string { return j.session }

// Record stores msg under the journal's session.
func (j *Journal) Record(ctx context.Context, dir Direction, msg wire.Message) error {
	payload, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	_, err = dbopen.Exec(ctx, j.db,
		`INSERT INTO messages (id, session_id, direction, type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.newID(), j.session, string(dir), string(msg.Type), string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Entries returns a session's entries in arrival order. An empty dir
// matches both directions; limit <= 0 means no limit.
func (j *Journal) Entries(ctx context.Context, session string, dir Direction, limit int) ([]Entry, error) {
	q := `SELECT id, session_id, direction, type, payload, created_at
		FROM messages WHERE session_id = ?`
	args := []any{session}
	if dir != "" {
		q += " AND direction = ?"
		args = append(args, string(dir))
	}
	q += " ORDER BY rowid"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var dirStr string
		var ms int64
		if err := rows.Scan(&e.ID, &e.SessionID, &dirStr, &e.Type, &e.Payload, &ms); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Direction = Direction(dirStr)
		e.CreatedAt = time.UnixMilli(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Replay feeds a session's inbound messages to fn in arrival order and
// returns how many were delivered. It stops at the first error.
func (j *Journal) Replay(ctx context.Context, session string, fn func(context.Context, wire.Message) error) (int, error) {
	entries, err := j.Entries(ctx, session, Inbound, 0)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		msg, err := wire.Decode([]byte(e.Payload))
		if err != nil {
			return n, fmt.Errorf("journal: replay %s: %w", e.ID, err)
		}
		if err := fn(ctx, msg); err != nil {
			return n, fmt.Errorf("journal: replay %s: %w", e.ID, err)
		}
		n++
	}
	j.logger.Info("journal: replayed session", "session", session, "messages", n)
	return n, nil
}

// Close closes the database if the journal opened it.
func (j *Journal) Close() error {
	if j.owned {
		return j.db.Close()
	}
	return nil
}

// OutboundSink records every outbound envelope. It satisfies the bridge
// sink interface.
type OutboundSink struct {
	j *Journal
}

// Sink returns a sink recording outbound envelopes into j.
func (j *Journal) Sink() *OutboundSink { return &OutboundSink{j: j} }

func (s *OutboundSink) Send(ctx context.Context, msg wire.Message) error {
	return s.j.Record(ctx, Outbound, msg)
}

// Close is a no-op; the journal owner closes the database.
func (s *OutboundSink) Close() error { return nil }
