package journal

import "fmt"

// Entry is one recorded tick.
type Entry struct {
	ID         int64  `db:"id"`
	StartedAt  int64  `db:"started_at"`
	DurationMS int64  `db:"duration_ms"`
	FeedURL    string `db:"feed_url"`
	ChannelID  string `db:"channel_id"`
	Outcome    string `db:"outcome"`
	Kind       string `db:"kind"`
	Link       string `db:"link"`  // latest item link, if the feed was read
	Title      string `db:"title"` // latest item title
	Error      string `db:"error"`
}

var (
	tableName = "tick_journal"
	initTable = fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY,
	started_at INTEGER,
	duration_ms INTEGER,
	feed_url TEXT,
	channel_id TEXT,
	outcome TEXT,
	kind TEXT,
	link TEXT,
	title TEXT,
	error TEXT
);`, tableName)
)
