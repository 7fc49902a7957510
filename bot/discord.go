package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/douglarek/newsbot/journal"
	"github.com/douglarek/newsbot/relay"
)

const (
	commandTimeout = 20 * time.Second
	stopTimeout    = 10 * time.Second
	statusEntries  = 5
)

var discordCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "newsbot",
		Description: "A news relay bot",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "help",
				Description: "show what this bot does",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "latest",
				Description: "show the latest item of the watched feed",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "show the poller state and recent ticks",
			},
		},
	},
}

// History is the read side of the tick journal.
type History interface {
	Recent(ctx context.Context, n int) ([]journal.Entry, error)
}

type Options struct {
	Fetcher     relay.Fetcher
	Relay       relay.Options
	Interval    time.Duration
	TickTimeout time.Duration
	Journal     *journal.Journal // nil disables the tick journal
	GuildID     string
}

type Discord struct {
	session   *discordgo.Session
	relay     *relay.Relay
	scheduler *relay.Scheduler
	history   History
}

func (d *Discord) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	d.scheduler.Stop(ctx)
	return d.session.Close()
}

// NewDiscordBot connects to Discord. The poller is armed once the gateway
// reports ready, and stays armed across reconnects.
func NewDiscordBot(token string, opts Options) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	// one handle to the session is shared by every tick
	r := relay.New(session, opts.Fetcher, opts.Relay)
	so := relay.SchedulerOptions{Interval: opts.Interval, TickTimeout: opts.TickTimeout}
	d := &Discord{session: session, relay: r}
	if opts.Journal != nil {
		so.Recorder = opts.Journal
		d.history = opts.Journal
	}
	d.scheduler = relay.NewScheduler(r, so)

	session.AddHandler(d.discordReady)
	session.AddHandler(d.discordCommandsHandler)
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	err = session.Open()
	if err != nil {
		d.Close()
		return nil, err
	}

	// create commands
	for _, v := range discordCommands {
		if _, err := session.ApplicationCommandCreate(session.State.User.ID, opts.GuildID, v); err != nil {
			// Ready may already have armed the scheduler during Open
			d.Close()
			return nil, err
		}
	}

	return d, nil
}

func (d *Discord) discordReady(_ *discordgo.Session, r *discordgo.Ready) {
	slog.Info("[bot.discordReady]: bot is ready", "user", r.User.Username, "feed_url", d.relay.FeedURL(), "channel_id", d.relay.ChannelID(), "mode", d.relay.Mode())
	d.scheduler.Start()
}

func (d *Discord) discordCommandsHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != "newsbot" || len(data.Options) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	content := d.commandContent(ctx, data.Options[0].Name)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: content,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.Error("[bot.discordCommandsHandler]: cannot respond", "command", data.Options[0].Name, "error", err)
	}
}

func (d *Discord) commandContent(ctx context.Context, name string) string {
	switch name {
	case "help":
		return helpContent(d.relay.FeedURL(), d.relay.ChannelID())
	case "latest":
		item, err := d.relay.Latest(ctx)
		if err != nil {
			return ":robot: " + err.Error()
		}
		return latestContent(item)
	case "status":
		var entries []journal.Entry
		if d.history != nil {
			var err error
			if entries, err = d.history.Recent(ctx, statusEntries); err != nil {
				return ":robot: " + err.Error()
			}
		}
		return statusContent(d.scheduler.State(), d.history != nil, entries)
	}
	return ":robot: unknown command " + name
}
