package relay

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/douglarek/newsbot/feed"
)

// Gateway is the part of *discordgo.Session a tick needs.
type Gateway interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, req *feed.FeederFetchRequest) (*feed.Feed, error)
}

type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Report describes one finished tick.
type Report struct {
	FeedURL   string
	ChannelID string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
	Kind      Kind
	Link      string
	Title     string
	Err       error
}

type Options struct {
	FeedURL   string
	ChannelID string
	Formatter Formatter
}

// Relay runs the fetch, compare and announce sequence against one feed and
// one channel. The channel's own history is the only dedup state.
type Relay struct {
	gateway   Gateway
	fetcher   Fetcher
	feedURL   string
	channelID string
	formatter Formatter
}

func New(gateway Gateway, fetcher Fetcher, opts Options) *Relay {
	if opts.Formatter.Mode == "" {
		opts.Formatter.Mode = ModePlain
	}
	return &Relay{
		gateway:   gateway,
		fetcher:   fetcher,
		feedURL:   opts.FeedURL,
		channelID: opts.ChannelID,
		formatter: opts.Formatter,
	}
}

func (r *Relay) FeedURL() string   { return r.feedURL }
func (r *Relay) ChannelID() string { return r.channelID }
func (r *Relay) Mode() Mode        { return r.formatter.Mode }

// Latest fetches the feed and returns its newest item.
func (r *Relay) Latest(ctx context.Context) (feed.Item, error) {
	fd, err := r.fetcher.Fetch(ctx, &feed.FeederFetchRequest{URL: r.feedURL})
	if err != nil {
		return feed.Item{}, fetchError(err)
	}
	item, err := fd.Latest()
	if err != nil {
		return feed.Item{}, fetchError(err)
	}
	return item, nil
}

// Tick runs one poll. Only the newest item is considered. The returned error,
// if any, is a *TickError and has already been folded into the report.
func (r *Relay) Tick(ctx context.Context) (Report, error) {
	rep := Report{
		FeedURL:   r.feedURL,
		ChannelID: r.channelID,
		StartedAt: time.Now(),
	}
	err := r.tick(ctx, &rep)
	rep.Duration = time.Since(rep.StartedAt)
	if err != nil {
		rep.Outcome = OutcomeFailed
		rep.Kind = KindOf(err)
		rep.Err = err
	}
	return rep, err
}

func (r *Relay) tick(ctx context.Context, rep *Report) error {
	mode := r.formatter.Mode

	latest, err := r.Latest(ctx)
	if err != nil {
		return err
	}
	rep.Link = latest.Link
	rep.Title = latest.Title

	key := Key(mode, latest)
	if key == "" {
		return &TickError{Kind: KindParse, Err: errors.New("latest item has no " + keyField(mode))}
	}

	msgs, err := r.gateway.ChannelMessages(r.channelID, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return &TickError{Kind: KindHistory, Err: err}
	}
	var last *discordgo.Message
	if len(msgs) > 0 {
		last = msgs[0]
	}
	fingerprint, _ := Fingerprint(mode, last)
	if !IsNew(mode, latest, fingerprint) {
		rep.Outcome = OutcomeDuplicate
		return nil
	}

	if _, err := r.gateway.ChannelMessageSendComplex(r.channelID, r.formatter.Render(latest), discordgo.WithContext(ctx)); err != nil {
		return &TickError{Kind: KindDelivery, Err: err}
	}
	rep.Outcome = OutcomeSent
	return nil
}

func keyField(mode Mode) string {
	if mode == ModeRich {
		return "title"
	}
	return "link"
}
