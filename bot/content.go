package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/douglarek/newsbot/feed"
	"github.com/douglarek/newsbot/journal"
	"github.com/douglarek/newsbot/relay"
)

func helpContent(feedURL, channelID string) string {
	var b strings.Builder
	b.WriteString(":newspaper2: I watch a news feed and post each new story once.\n")
	fmt.Fprintf(&b, "- feed: <%s>\n", feedURL)
	fmt.Fprintf(&b, "- channel: <#%s>\n", channelID)
	b.WriteString("Commands:\n")
	b.WriteString("- `/newsbot latest` show the newest item in the feed\n")
	b.WriteString("- `/newsbot status` show the poller state and recent ticks\n")
	b.WriteString("- `/newsbot help` show this message")
	return b.String()
}

func latestContent(item feed.Item) string {
	return fmt.Sprintf(":newspaper2: Latest feed: %s\nBy %s\n%s", item.Title, item.Author, item.Link)
}

func statusContent(state relay.State, journaled bool, entries []journal.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":robot: Poller is **%s**\n", state)
	if !journaled {
		b.WriteString("Tick journal is disabled.")
		return b.String()
	}
	if len(entries) == 0 {
		b.WriteString("No ticks recorded yet.")
		return b.String()
	}
	b.WriteString("Recent ticks:\n")
	for _, e := range entries {
		ts := time.Unix(e.StartedAt, 0).UTC().Format(time.RFC3339)
		switch e.Outcome {
		case string(relay.OutcomeFailed):
			fmt.Fprintf(&b, "- `%s` failed (%s): %s\n", ts, e.Kind, e.Error)
		case string(relay.OutcomeSent):
			fmt.Fprintf(&b, "- `%s` posted <%s>\n", ts, e.Link)
		default:
			fmt.Fprintf(&b, "- `%s` %s\n", ts, e.Outcome)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
