package relay

import (
	"github.com/bwmarrin/discordgo"
	"github.com/douglarek/newsbot/feed"
)

const (
	DefaultColor = 0x1E90FF

	maxEmbedTitle       = 256
	maxEmbedDescription = 4096
)

// Formatter renders feed items into Discord payloads. Color is used as
// given, so the zero value renders black.
type Formatter struct {
	Mode      Mode
	Thumbnail string
	Color     int
}

// Render builds the announcement for item. It never fails.
func (f Formatter) Render(item feed.Item) *discordgo.MessageSend {
	if f.Mode != ModeRich {
		return &discordgo.MessageSend{Content: item.Link}
	}

	author := item.Author
	if author == "" {
		author = feed.UnknownAuthor
	}
	embed := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       clip(item.Title, maxEmbedTitle),
		Description: clip(item.Description, maxEmbedDescription),
		URL:         item.Link,
		Color:       f.Color,
		Footer:      &discordgo.MessageEmbedFooter{Text: "By " + author},
	}
	if f.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: f.Thumbnail}
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
