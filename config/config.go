package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/douglarek/newsbot/relay"
	"github.com/joho/godotenv"
	"muzzammil.xyz/jsonc"
)

// TokenEnv names the environment variable holding the Discord bot token.
const TokenEnv = "DISCORD_TOKEN"

const (
	DefaultFeedURL     = "https://www.dlnews.com/arc/outboundfeeds/rss/"
	DefaultInterval    = 60 * time.Second
	DefaultTickTimeout = 30 * time.Second
)

var ErrMissingToken = errors.New("missing " + TokenEnv + " env var")

type Settings struct {
	BotToken     string     `json:"-"`
	EnableDebug  bool       `json:"enable_debug"`
	DBFile       string     `json:"db_file"` // optional tick journal
	JournalKeep  int        `json:"journal_keep"`
	FeedURL      string     `json:"feed_url"`
	ChannelID    string     `json:"channel_id"`
	GuildID      string     `json:"guild_id"` // empty registers commands globally
	Mode         relay.Mode `json:"mode"`
	Interval     Duration   `json:"interval"`
	TickTimeout  Duration   `json:"tick_timeout"`
	ThumbnailURL string     `json:"thumbnail_url"`
	Color        int        `json:"color"` // 0 is black; omit for the default accent
	UserAgent    string     `json:"user_agent"`
}

var _ json.Unmarshaler = (*Settings)(nil)

func (s *Settings) UnmarshalJSON(data []byte) error {
	type Alias Settings
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(s),
	}
	aux.FeedURL = DefaultFeedURL
	aux.Interval = Duration(DefaultInterval)
	aux.TickTimeout = Duration(DefaultTickTimeout)
	aux.Color = relay.DefaultColor
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if strings.TrimSpace(s.FeedURL) == "" {
		return errors.New("feed_url is required")
	}

	if strings.TrimSpace(s.ChannelID) == "" {
		return errors.New("channel_id is required")
	}

	mode, err := relay.ParseMode(string(s.Mode))
	if err != nil {
		return err
	}
	s.Mode = mode

	if s.Color < 0 || s.Color > 0xFFFFFF {
		return errors.New("color must be between 0 and 0xFFFFFF")
	}

	if s.JournalKeep < 0 {
		return errors.New("journal_keep must be >= 0")
	}

	if s.Interval < Duration(time.Second) {
		return errors.New("interval must be at least 1s")
	}

	if s.TickTimeout <= 0 || s.TickTimeout >= s.Interval {
		return errors.New("tick_timeout must be positive and shorter than interval")
	}

	return nil
}

// LoadSettings reads the JSONC settings file and the bot token. A .env file in
// the working directory, if present, is loaded into the environment first.
func LoadSettings(filePath string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return Settings{}, err
	}

	var config Settings
	if err := jsonc.Unmarshal(data, &config); err != nil {
		return Settings{}, err
	}

	config.BotToken = strings.TrimSpace(os.Getenv(TokenEnv))
	if config.BotToken == "" {
		return Settings{}, ErrMissingToken
	}
	return config, nil
}

// Duration is a time.Duration written as a Go duration string, e.g. "60s".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration must be a string like \"60s\": %w", err)
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if v < 0 {
		return fmt.Errorf("duration %q must be >= 0", raw)
	}
	*d = Duration(v)
	return nil
}
