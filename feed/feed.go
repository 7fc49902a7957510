package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.81 Safari/537.36"

	maxBodySize = 10 << 20
)

var (
	// ErrFetch marks network level failures: transport errors, timeouts and non-2xx replies.
	ErrFetch = errors.New("feed: fetch failed")
	// ErrParse marks documents gofeed could not understand.
	ErrParse = errors.New("feed: parse failed")
	// ErrNoItems is returned when a parsed feed carries no entries.
	ErrNoItems = errors.New("feed: no items in feed")
)

type Feeder struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
}

// New returns a Feeder using client for retrieval. A nil client means http.DefaultClient.
func New(client *http.Client, userAgent string) *Feeder {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Feeder{
		client:    client,
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
	}
}

// Fetch retrieves and parses the feed at req.URL. Errors wrap ErrFetch or ErrParse.
func (f *Feeder) Fetch(ctx context.Context, req *FeederFetchRequest) (*Feed, error) {
	body, err := f.download(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	fd, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, req.URL, err)
	}

	out := &Feed{
		Title: strings.TrimSpace(fd.Title),
		Link:  req.URL,
		Items: make([]Item, 0, len(fd.Items)),
	}
	for _, it := range fd.Items {
		if it == nil {
			continue
		}
		out.Items = append(out.Items, convert(it))
	}
	return out, nil
}

func (f *Feeder) download(ctx context.Context, url string) ([]byte, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	hreq.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFetch, url, err)
	}
	return body, nil
}

func convert(it *gofeed.Item) Item {
	return Item{
		Title:       strings.TrimSpace(it.Title),
		Description: strings.TrimSpace(it.Description),
		Link:        strings.TrimSpace(it.Link),
		Author:      author(it),
	}
}

func author(it *gofeed.Item) string {
	if it.Author != nil {
		if name := strings.TrimSpace(it.Author.Name); name != "" {
			return name
		}
	}
	for _, p := range it.Authors {
		if p == nil {
			continue
		}
		if name := strings.TrimSpace(p.Name); name != "" {
			return name
		}
	}
	return UnknownAuthor
}
