package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/douglarek/newsbot/feed"
)

type fakeFetcher struct {
	feed  *feed.Feed
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ *feed.FeederFetchRequest) (*feed.Feed, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.feed, nil
}

// fakeGateway is an in-memory channel: sent messages become history.
type fakeGateway struct {
	history    []*discordgo.Message // newest last
	historyErr error
	sendErr    error
	sent       []*discordgo.MessageSend
	limits     []int
}

func (g *fakeGateway) ChannelMessages(channelID string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	g.limits = append(g.limits, limit)
	if g.historyErr != nil {
		return nil, g.historyErr
	}
	var out []*discordgo.Message
	for i := len(g.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, g.history[i])
	}
	return out, nil
}

func (g *fakeGateway) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.sent = append(g.sent, data)
	msg := &discordgo.Message{ID: fmt.Sprint(len(g.history) + 1), ChannelID: channelID, Content: data.Content, Embeds: data.Embeds}
	g.history = append(g.history, msg)
	return msg, nil
}

func items(links ...string) *feed.Feed {
	fd := &feed.Feed{}
	for _, l := range links {
		fd.Items = append(fd.Items, feed.Item{Title: "title " + l, Description: "desc " + l, Link: l, Author: feed.UnknownAuthor})
	}
	return fd
}

func newRelay(gw Gateway, f Fetcher, mode Mode) *Relay {
	return New(gw, f, Options{FeedURL: "https://feed", ChannelID: "42", Formatter: Formatter{Mode: mode}})
}

func TestTickSkipsAnnouncedLink(t *testing.T) {
	gw := &fakeGateway{history: []*discordgo.Message{{Content: "https://x/1"}}}
	r := newRelay(gw, &fakeFetcher{feed: items("https://x/1")}, ModePlain)

	rep, err := r.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rep.Outcome != OutcomeDuplicate {
		t.Errorf("outcome = %s, want %s", rep.Outcome, OutcomeDuplicate)
	}
	if len(gw.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(gw.sent))
	}
	if len(gw.limits) != 1 || gw.limits[0] != 1 {
		t.Errorf("history limits = %v, want [1]", gw.limits)
	}
}

func TestTickSendsNewLink(t *testing.T) {
	gw := &fakeGateway{history: []*discordgo.Message{{Content: "https://x/1"}}}
	r := newRelay(gw, &fakeFetcher{feed: items("https://x/2")}, ModePlain)

	rep, err := r.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rep.Outcome != OutcomeSent || rep.Link != "https://x/2" {
		t.Errorf("report = %+v", rep)
	}
	if len(gw.sent) != 1 || gw.sent[0].Content != "https://x/2" {
		t.Fatalf("sent = %+v", gw.sent)
	}
}

func TestTickIdempotent(t *testing.T) {
	gw := &fakeGateway{}
	r := newRelay(gw, &fakeFetcher{feed: items("https://x/1")}, ModePlain)

	for i := 0; i < 3; i++ {
		if _, err := r.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if len(gw.sent) != 1 {
		t.Fatalf("sent %d messages over unchanged feed, want 1", len(gw.sent))
	}
}

func TestTickOnlyConsidersNewest(t *testing.T) {
	// B was announced before; A is the newest and must be the only candidate.
	gw := &fakeGateway{history: []*discordgo.Message{{Content: "https://x/b"}}}
	r := newRelay(gw, &fakeFetcher{feed: items("https://x/a", "https://x/b", "https://x/c")}, ModePlain)

	if _, err := r.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(gw.sent) != 1 || gw.sent[0].Content != "https://x/a" {
		t.Fatalf("sent = %+v, want only https://x/a", gw.sent)
	}
}

func TestTickEmptyChannelTreatedAsNew(t *testing.T) {
	for _, mode := range []Mode{ModePlain, ModeRich} {
		t.Run(string(mode), func(t *testing.T) {
			// last message exists but yields no comparable key
			gw := &fakeGateway{history: []*discordgo.Message{{Content: "", Embeds: nil}}}
			r := newRelay(gw, &fakeFetcher{feed: items("https://x/1")}, mode)

			rep, err := r.Tick(context.Background())
			if err != nil {
				t.Fatalf("Tick: %v", err)
			}
			if rep.Outcome != OutcomeSent {
				t.Errorf("outcome = %s, want sent", rep.Outcome)
			}
		})
	}
}

func TestTickRichMode(t *testing.T) {
	gw := &fakeGateway{history: []*discordgo.Message{{Embeds: []*discordgo.MessageEmbed{{Title: "Old"}}}}}
	f := &fakeFetcher{feed: &feed.Feed{Items: []feed.Item{{Title: "T", Description: "D", Link: "L", Author: "A"}}}}
	r := newRelay(gw, f, ModeRich)

	if _, err := r.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(gw.sent) != 1 || len(gw.sent[0].Embeds) != 1 {
		t.Fatalf("sent = %+v", gw.sent)
	}
	e := gw.sent[0].Embeds[0]
	if e.Title != "T" || e.Description != "D" || e.URL != "L" || e.Footer == nil || e.Footer.Text != "By A" {
		t.Errorf("embed = %+v footer = %+v", e, e.Footer)
	}

	// the card just sent is now the fingerprint
	rep, err := r.Tick(context.Background())
	if err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if rep.Outcome != OutcomeDuplicate || len(gw.sent) != 1 {
		t.Errorf("second tick outcome = %s, sent = %d", rep.Outcome, len(gw.sent))
	}
}

func TestTickErrorKinds(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		gateway *fakeGateway
		want    Kind
	}{
		{
			name:    "network timeout",
			fetcher: &fakeFetcher{err: fmt.Errorf("%w: %w", feed.ErrFetch, context.DeadlineExceeded)},
			gateway: &fakeGateway{},
			want:    KindFetch,
		},
		{
			name:    "malformed feed",
			fetcher: &fakeFetcher{err: fmt.Errorf("%w: bad xml", feed.ErrParse)},
			gateway: &fakeGateway{},
			want:    KindParse,
		},
		{
			name:    "empty feed",
			fetcher: &fakeFetcher{feed: &feed.Feed{}},
			gateway: &fakeGateway{},
			want:    KindParse,
		},
		{
			name:    "item without link",
			fetcher: &fakeFetcher{feed: &feed.Feed{Items: []feed.Item{{Title: "no link"}}}},
			gateway: &fakeGateway{},
			want:    KindParse,
		},
		{
			name:    "history unreadable",
			fetcher: &fakeFetcher{feed: items("https://x/1")},
			gateway: &fakeGateway{historyErr: boom},
			want:    KindHistory,
		},
		{
			name:    "send rejected",
			fetcher: &fakeFetcher{feed: items("https://x/1")},
			gateway: &fakeGateway{sendErr: boom},
			want:    KindDelivery,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRelay(tt.gateway, tt.fetcher, ModePlain)
			rep, err := r.Tick(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("kind = %q, want %q (%v)", got, tt.want, err)
			}
			if rep.Outcome != OutcomeFailed || rep.Kind != tt.want || rep.Err == nil {
				t.Errorf("report = %+v", rep)
			}
			if len(tt.gateway.sent) != 0 {
				t.Errorf("sent %d messages on failure", len(tt.gateway.sent))
			}
		})
	}
}

func TestTickDeliveryNotRetried(t *testing.T) {
	gw := &fakeGateway{sendErr: errors.New("rejected")}
	f := &fakeFetcher{feed: items("https://x/1")}
	r := newRelay(gw, f, ModePlain)

	if _, err := r.Tick(context.Background()); KindOf(err) != KindDelivery {
		t.Fatalf("err = %v", err)
	}
	if f.calls != 1 || len(gw.limits) != 1 {
		t.Errorf("fetch calls = %d, history calls = %d, want 1 each", f.calls, len(gw.limits))
	}

	gw.sendErr = nil
	rep, err := r.Tick(context.Background())
	if err != nil || rep.Outcome != OutcomeSent {
		t.Fatalf("next tick: rep = %+v, err = %v", rep, err)
	}
}
