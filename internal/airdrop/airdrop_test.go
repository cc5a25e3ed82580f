package airdrop_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crypto-assistant-bot/internal/airdrop"

	"github.com/stretchr/testify/require"
)

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Airdrops</title>
%s
</channel></rss>`

func item(title, link, description string) string {
	return fmt.Sprintf("<item><title>%s</title><link>%s</link><description><![CDATA[%s]]></description></item>", title, link, description)
}

func serve(t *testing.T, items ...string) string {
	t.Helper()

	body := fmt.Sprintf(rss, strings.Join(items, "\n"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestFetchFiltersByTitle(t *testing.T) {
	t.Parallel()

	first := serve(t,
		item("ZkSync Season 2", "https://example.com/zk", "<p>Bridge &amp; swap</p>"),
		item("Monad testnet", "https://example.com/monad", ""),
		item("No link", "", ""),
	)
	second := serve(t, item("Scroll zkEVM points", "https://example.com/scroll", "Use the bridge"))

	f := airdrop.New([]string{first, second}, time.Second)

	items := f.Fetch(context.Background(), "ZK", 10)
	require.Len(t, items, 2)
	require.Equal(t, "ZkSync Season 2", items[0].Title)
	require.Equal(t, "Bridge & swap", items[0].Summary)
	require.Equal(t, "https://example.com/scroll", items[1].Link)
}

func TestFetchRespectsLimitAndSkipsBrokenFeeds(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	good := serve(t,
		item("A", "https://example.com/a", ""),
		item("B", "https://example.com/b", ""),
		item("C", "https://example.com/c", ""),
	)

	f := airdrop.New([]string{broken.URL, good}, time.Second)
	items := f.Fetch(context.Background(), "", 2)
	require.Len(t, items, 2)
	require.Equal(t, "A", items[0].Title)
	require.Equal(t, "B", items[1].Title)
}
