// Package journal keeps a bounded log of scheduler ticks in SQLite. It is a
// diagnostic record only; duplicate detection never reads it.
package journal

import (
	"context"
	"fmt"

	"github.com/douglarek/newsbot/relay"
	"github.com/gocraft/dbr/v2"
	_ "modernc.org/sqlite"
)

// DefaultKeep is the number of rows kept after each insert.
const DefaultKeep = 500

type Journal struct {
	db   *dbr.Connection
	keep int
}

var _ relay.Recorder = (*Journal)(nil)

// Open opens or creates the journal database at path and trims it to the
// newest keep rows. keep <= 0 means DefaultKeep.
func Open(path string, keep int) (*Journal, error) {
	db, err := dbr.Open("sqlite", path, nil)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if keep > 0 {
		j.keep = keep
	}
	if err := j.Prune(context.Background(), j.keep); err != nil {
		db.Close()
		return nil, fmt.Errorf("prune journal: %w", err)
	}
	return j, nil
}

func New(db *dbr.Connection) (*Journal, error) {
	if _, err := db.NewSession(nil).Exec(initTable); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &Journal{db: db, keep: DefaultKeep}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores rep and prunes old rows.
func (j *Journal) Record(ctx context.Context, rep relay.Report) error {
	tx, err := j.db.NewSession(nil).Begin()
	if err != nil {
		return err
	}
	defer tx.RollbackUnlessCommitted()

	var errText string
	if rep.Err != nil {
		errText = rep.Err.Error()
	}
	_, err = tx.InsertInto(tableName).
		Columns("started_at", "duration_ms", "feed_url", "channel_id", "outcome", "kind", "link", "title", "error").
		Values(rep.StartedAt.Unix(), rep.Duration.Milliseconds(), rep.FeedURL, rep.ChannelID,
			string(rep.Outcome), string(rep.Kind), rep.Link, rep.Title, errText).
		ExecContext(ctx)
	if err != nil {
		return err
	}

	if err := prune(ctx, tx, j.keep); err != nil {
		return err
	}
	return tx.Commit()
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	var resp []Entry
	if _, err := j.db.NewSession(nil).Select("*").From(tableName).
		OrderDesc("id").Limit(uint64(n)).LoadContext(ctx, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Prune keeps the newest keep rows.
func (j *Journal) Prune(ctx context.Context, keep int) error {
	tx, err := j.db.NewSession(nil).Begin()
	if err != nil {
		return err
	}
	defer tx.RollbackUnlessCommitted()

	if err := prune(ctx, tx, keep); err != nil {
		return err
	}
	return tx.Commit()
}

func prune(ctx context.Context, tx *dbr.Tx, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := tx.DeleteFrom(tableName).
		Where("id NOT IN (SELECT id FROM "+tableName+" ORDER BY id DESC LIMIT ?)", keep).
		ExecContext(ctx)
	return err
}
