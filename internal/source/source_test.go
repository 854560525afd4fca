package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiclamp/leadscout/internal/model"
)

func TestRegistryPreservesOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry(
		&stubAdapter{name: "yellowpages"},
		&stubAdapter{name: "googlemaps"},
		&stubAdapter{name: "feed"},
	)

	assert.Equal(t, []string{"yellowpages", "googlemaps", "feed"}, r.Names())

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "yellowpages", all[0].Name())
	assert.Equal(t, "feed", all[2].Name())
}

func TestRegistryGetUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry(&stubAdapter{name: "yellowpages"})

	_, err := r.Get("linkedin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown adapter "linkedin"`)
}

func TestRegistrySelect(t *testing.T) {
	t.Parallel()

	r := NewRegistry(
		&stubAdapter{name: "yellowpages"},
		&stubAdapter{name: "googlemaps"},
		&stubAdapter{name: "feed"},
	)

	picked, err := r.Select([]string{"feed", "yellowpages"})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "feed", picked[0].Name())
	assert.Equal(t, "yellowpages", picked[1].Name())

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = r.Select([]string{"yellowpages", "bogus"})
	require.Error(t, err)
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	t.Parallel()

	first := &stubAdapter{name: "feed"}
	second := &stubAdapter{name: "feed", listings: []model.RawListing{{Name: "Acme"}}}

	r := NewRegistry(first)
	r.Register(second)

	assert.Equal(t, []string{"feed"}, r.Names())
	got, err := r.Get("feed")
	require.NoError(t, err)
	listings, err := got.Search(context.Background(), model.Query{})
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestUnavailableError(t *testing.T) {
	t.Parallel()

	plain := Unavailable("yellowpages", "blocked (captcha)", nil)
	assert.Equal(t, "source yellowpages unavailable: blocked (captcha)", plain.Error())
	assert.True(t, IsUnavailable(plain))

	cause := errors.New("connection reset")
	wrapped := Unavailable("feed", "feed download failed", cause)
	assert.Contains(t, wrapped.Error(), "connection reset")
	assert.True(t, IsUnavailable(fmt.Errorf("search: %w", wrapped)))
	assert.ErrorIs(t, wrapped, cause)

	assert.False(t, IsUnavailable(errors.New("plain failure")))
	assert.False(t, IsUnavailable(nil))
}

func TestParseError(t *testing.T) {
	t.Parallel()

	err := &ParseError{Source: "yellowpages", Reason: "card without business name"}
	assert.Equal(t, "parse error in yellowpages: card without business name", err.Error())
	assert.True(t, IsParse(err))

	withURL := &ParseError{Source: "feed", URL: "https://example.com/feed.csv", Reason: "bad row"}
	assert.Contains(t, withURL.Error(), "https://example.com/feed.csv")

	assert.False(t, IsParse(errors.New("other")))
}

func TestDetectBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		blocked bool
		kind    BlockType
	}{
		{
			name:    "cloudflare interstitial",
			body:    "<html><body>Checking your browser before accessing...</body></html>",
			blocked: true,
			kind:    BlockCloudflare,
		},
		{
			name:    "cloudflare challenge",
			body:    "<html><title>Cloudflare</title><div id=challenge-form></div></html>",
			blocked: true,
			kind:    BlockCloudflare,
		},
		{
			name:    "recaptcha",
			body:    `<div class="g-recaptcha" data-sitekey="x"></div>`,
			blocked: true,
			kind:    BlockCaptcha,
		},
		{
			name:    "google consent",
			body:    `<html><a href="https://consent.google.com/m?continue=x">Accept</a></html>`,
			blocked: true,
			kind:    BlockConsent,
		},
		{
			name:    "before you continue wall",
			body:    "<html><h1>Before you continue to Google Maps</h1></html>",
			blocked: true,
			kind:    BlockConsent,
		},
		{
			name:    "tiny js shell",
			body:    "<html><noscript>Please enable JavaScript</noscript></html>",
			blocked: true,
			kind:    BlockJSShell,
		},
		{
			name:    "meta refresh shell",
			body:    `<html><meta http-equiv="refresh" content="0;url=/real"></html>`,
			blocked: true,
			kind:    BlockJSShell,
		},
		{
			name:    "large page with noscript is fine",
			body:    "<html><noscript>enable javascript</noscript>" + strings.Repeat("<p>listing</p>", 500) + "</html>",
			blocked: false,
			kind:    BlockNone,
		},
		{
			name:    "ordinary results page",
			body:    `<html><div class="search-results"><div class="result">Acme</div></div></html>`,
			blocked: false,
			kind:    BlockNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blocked, kind := DetectBlock([]byte(tt.body))
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestDiscoverCollectsPerAdapterResults(t *testing.T) {
	t.Parallel()

	adapters := []Adapter{
		&stubAdapter{name: "yellowpages", listings: []model.RawListing{{Name: "Acme Offices"}, {Name: "Summit Plaza"}}},
		&stubAdapter{name: "googlemaps", err: Unavailable("googlemaps", "blocked (consent_wall)", nil)},
		&stubAdapter{name: "feed", listings: []model.RawListing{{Name: "Harbor Industrial"}}},
	}

	results := Discover(context.Background(), adapters, model.Query{City: "Columbus", State: "OH"})
	require.Len(t, results, 3)

	assert.Equal(t, "yellowpages", results[0].Source)
	assert.Len(t, results[0].Listings, 2)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, "googlemaps", results[1].Source)
	assert.True(t, IsUnavailable(results[1].Err))
	assert.Empty(t, results[1].Listings)

	assert.Equal(t, "feed", results[2].Source)
	assert.Len(t, results[2].Listings, 1)
}

func TestDiscoverNoAdapters(t *testing.T) {
	t.Parallel()

	results := Discover(context.Background(), nil, model.Query{})
	assert.Empty(t, results)
}

func TestHTMLText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`<a href="#"><span>Acme &amp; Sons</span></a>`, "Acme & Sons"},
		{"  <div>\n\tSummit   Plaza\n</div> ", "Summit Plaza"},
		{"&lt;escaped&gt;&nbsp;&quot;text&quot;", `<escaped> "text"`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, htmlText(tt.in))
	}
}
