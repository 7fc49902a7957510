package relay

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/douglarek/newsbot/feed"
)

// Mode selects how announcements are rendered and therefore which field
// is compared when looking for duplicates.
type Mode string

const (
	// ModePlain posts the bare item link and dedups on it.
	ModePlain Mode = "plain"
	// ModeRich posts an embed card and dedups on its title.
	ModeRich Mode = "rich"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePlain:
		return ModePlain, nil
	case ModeRich:
		return ModeRich, nil
	}
	return "", fmt.Errorf("unknown mode %q, want %q or %q", s, ModePlain, ModeRich)
}

// Fingerprint extracts the comparison key from the channel's most recent
// message. It reports false when msg is nil or carries nothing comparable.
func Fingerprint(mode Mode, msg *discordgo.Message) (string, bool) {
	if msg == nil {
		return "", false
	}
	if mode == ModeRich {
		if len(msg.Embeds) == 0 || msg.Embeds[0] == nil || msg.Embeds[0].Title == "" {
			return "", false
		}
		return msg.Embeds[0].Title, true
	}
	if msg.Content == "" {
		return "", false
	}
	return msg.Content, true
}

// Key is the fingerprint an announcement of item would leave behind.
func Key(mode Mode, item feed.Item) string {
	if mode == ModeRich {
		return clip(item.Title, maxEmbedTitle)
	}
	return item.Link
}

// IsNew reports whether latest differs from the last announcement. An empty
// fingerprint means there is no prior announcement to compare against.
func IsNew(mode Mode, latest feed.Item, fingerprint string) bool {
	if fingerprint == "" {
		return true
	}
	return Key(mode, latest) != fingerprint
}
