package airdrop

import (
	"context"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"
)

// DefaultFeeds are the airdrop listing feeds polled when none are configured.
var DefaultFeeds = []string{
	"https://airdrops.io/latest/feed",
	"https://cryptorank.io/airdrops/feed",
}

// DefaultLimit caps the number of listings in one reply.
const DefaultLimit = 6

type Item struct {
	Title   string
	Link    string
	Summary string
}

// Fetcher reads airdrop listings from RSS/Atom feeds.
type Fetcher struct {
	feeds  []string
	parser *gofeed.Parser
}

func New(feeds []string, timeout time.Duration) *Fetcher {
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "crypto-assistant-bot"
	return &Fetcher{feeds: feeds, parser: parser}
}

// Fetch returns up to limit entries whose title contains query
// (case-insensitive), feeds in configured order. A feed that fails to load
// is skipped.
func (f *Fetcher) Fetch(ctx context.Context, query string, limit int) []Item {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query = strings.ToLower(strings.TrimSpace(query))

	var out []Item
	for _, url := range f.feeds {
		feed, err := f.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			log.WithError(err).WithField("feed", url).Warn("failed to load airdrop feed")
			continue
		}

		for _, e := range feed.Items {
			item := Item{
				Title:   strings.TrimSpace(e.Title),
				Link:    strings.TrimSpace(e.Link),
				Summary: plainText(e.Description),
			}
			if item.Title == "" || item.Link == "" {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(item.Title), query) {
				continue
			}
			out = append(out, item)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

var tags = regexp.MustCompile(`<[^>]*>`)

func plainText(s string) string {
	s = html.UnescapeString(tags.ReplaceAllString(s, " "))
	return strings.Join(strings.Fields(s), " ")
}
