package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/douglarek/newsbot/bot"
	"github.com/douglarek/newsbot/config"
	"github.com/douglarek/newsbot/feed"
	"github.com/douglarek/newsbot/journal"
	"github.com/douglarek/newsbot/relay"
)

var configFile = flag.String("config-file", "config.jsonc", "path to config file")
var slogLevel = new(slog.LevelVar)

func init() {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
}

func main() {
	flag.Parse()

	settings, err := config.LoadSettings(*configFile)
	if err != nil {
		slog.Error("[main]: cannot load settings", "error", err)
		os.Exit(1)
	}
	if settings.EnableDebug {
		slogLevel.Set(slog.LevelDebug)
	}

	var jr *journal.Journal
	if settings.DBFile != "" {
		jr, err = journal.Open(settings.DBFile, settings.JournalKeep)
		if err != nil {
			slog.Error("[main]: cannot open database", "error", err)
			os.Exit(1)
		}
		defer jr.Close()
	}

	// the tick timeout bounds every fetch; the client itself has no deadline
	feeder := feed.New(&http.Client{}, settings.UserAgent)
	bot, err := bot.NewDiscordBot(settings.BotToken, bot.Options{
		Fetcher: feeder,
		Relay: relay.Options{
			FeedURL:   settings.FeedURL,
			ChannelID: settings.ChannelID,
			Formatter: relay.Formatter{
				Mode:      settings.Mode,
				Thumbnail: settings.ThumbnailURL,
				Color:     settings.Color,
			},
		},
		Interval:    settings.Interval.Std(),
		TickTimeout: settings.TickTimeout.Std(),
		Journal:     jr,
		GuildID:     settings.GuildID,
	})
	if err != nil {
		slog.Error("[main]: cannot create discord bot", "error", err)
		if jr != nil {
			jr.Close()
		}
		os.Exit(1)
	}
	defer bot.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("[main]: bot is running, press Ctrl+C to exit")
	<-stop
	slog.Info("[main]: bot is gracefully shutting down")
}
