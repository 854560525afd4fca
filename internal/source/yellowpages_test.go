package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiclamp/leadscout/internal/model"
)

const ypResultsPage = `<html><body>
<div class="search-results organic">
<div class="result">
  <a class="business-name" href="/biz/acme-offices"><span>Acme Offices</span></a>
  <div class="street-address">123 Main St</div>
  <div class="locality">Columbus, OH 43215</div>
  <div class="phones phone primary">(614) 555-0142</div>
  <div class="categories"><a href="#">Office Buildings</a></div>
  <a class="track-visit-website" href="https://acme-offices.example.com">Website</a>
  <div class="years-in-business"><div class="count"><span class="number">12</span></div></div>
</div>
<div class="result">
  <a class="business-name" href="/biz/summit-plaza">Summit Plaza</a>
  <div class="street-address">500 Summit Ave</div>
  <div class="locality">Columbus, OH</div>
  <div class="phones phone primary">(614) 555-0188</div>
</div>
</div>
</body></html>`

func ypQuery() model.Query {
	return model.Query{City: "Columbus", State: "OH", Limit: 10}
}

func TestYellowPagesSearchParsesCards(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	stub.pages[yp.searchURL(q)] = []byte(ypResultsPage)

	listings, err := yp.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Acme Offices", first.Name)
	assert.Equal(t, "123 Main St", first.Street)
	assert.Equal(t, "Columbus", first.City)
	assert.Equal(t, "OH", first.State)
	assert.Equal(t, "43215", first.Zip)
	assert.Equal(t, "(614) 555-0142", first.Phone)
	assert.Equal(t, "Office Buildings", first.Category)
	assert.Equal(t, "https://acme-offices.example.com", first.Website)
	assert.Equal(t, "https://www.yellowpages.com/biz/acme-offices", first.DetailURL)
	assert.Equal(t, "yellowpages", first.Source)
	require.NotNil(t, first.YearBuilt)
	assert.Equal(t, time.Now().Year()-12, *first.YearBuilt)

	second := listings[1]
	assert.Equal(t, "Summit Plaza", second.Name)
	assert.Empty(t, second.Website)
	assert.Empty(t, second.Zip)
	assert.Nil(t, second.YearBuilt)
}

func TestYellowPagesSearchURLForm(t *testing.T) {
	t.Parallel()

	yp := NewYellowPages(newStubFetcher())

	u := yp.searchURL(model.Query{City: "Columbus", State: "OH"})
	assert.Contains(t, u, "yellowpages.com/search?")
	assert.Contains(t, u, "search_terms=office+buildings")
	assert.Contains(t, u, "geo_location_terms=Columbus%2C+OH")

	u = yp.searchURL(model.Query{City: "Austin", State: "TX", Category: "warehouses"})
	assert.Contains(t, u, "search_terms=warehouses")
}

func TestYellowPagesFollowsPagination(t *testing.T) {
	t.Parallel()

	page1 := `<html><div class="search-results">
<div class="result"><a class="business-name" href="/biz/a">First Co</a></div>
<a class="next" href="/search?page=2">Next</a>
</div></html>`
	page2 := `<html><div class="search-results">
<div class="result"><a class="business-name" href="/biz/b">Second Co</a></div>
</div></html>`

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	stub.pages[yp.searchURL(q)] = []byte(page1)
	stub.pages["https://www.yellowpages.com/search?page=2"] = []byte(page2)

	listings, err := yp.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "First Co", listings[0].Name)
	assert.Equal(t, "Second Co", listings[1].Name)
	assert.Len(t, stub.urls, 2)
}

func TestYellowPagesStopsAtDisabledNext(t *testing.T) {
	t.Parallel()

	page := `<html><div class="search-results">
<div class="result"><a class="business-name" href="/biz/a">Only Co</a></div>
<a class="next disabled">Next</a>
</div></html>`

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	stub.pages[yp.searchURL(q)] = []byte(page)

	listings, err := yp.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Len(t, stub.urls, 1)
}

func TestYellowPagesLimitStopsPagination(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	q.Limit = 1
	stub.pages[yp.searchURL(q)] = []byte(ypResultsPage)

	listings, err := yp.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Len(t, stub.urls, 1)
}

func TestYellowPagesSkipsNamelessCards(t *testing.T) {
	t.Parallel()

	page := `<html><div class="search-results">
<div class="result"><div class="street-address">99 Ghost Rd</div></div>
<div class="result"><a class="business-name" href="/biz/real">Real Co</a></div>
</div></html>`

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	stub.pages[yp.searchURL(q)] = []byte(page)

	listings, err := yp.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Real Co", listings[0].Name)
}

func TestYellowPagesBlockedPageIsUnavailable(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	stub.pages[yp.searchURL(q)] = []byte(`<html>please solve this captcha to continue</html>`)

	_, err := yp.Search(context.Background(), q)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "blocked (captcha)")
}

func TestYellowPagesFetchFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	stub.errs[yp.searchURL(q)] = errors.New("connection refused")

	_, err := yp.Search(context.Background(), q)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestYellowPagesUnrecognizedMarkupIsUnavailable(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	stub.pages[yp.searchURL(q)] = []byte(`<html><body>Totally unrelated page</body></html>`)

	_, err := yp.Search(context.Background(), q)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestYellowPagesEmptyResultsIsNotAnError(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	yp := NewYellowPages(stub)
	q := ypQuery()
	stub.pages[yp.searchURL(q)] = []byte(`<html><div class="search-results">No results found</div></html>`)

	listings, err := yp.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

const ypDetailPage = `<html><body>
<section class="business-description">Family-run property management firm operating three office parks.</section>
<a href="mailto:info@acme.example.com?subject=Hello">Email us</a>
<h2>Owner</h2>
<p>Jane Doe</p>
<dl class="about">
<dt>Year Established</dt><dd>1998</dd>
<dt>Building Size</dt><dd>24,000 sq ft</dd>
<dt>Email</dt><dd>office@acme.example.com</dd>
</dl>
</body></html>`

func TestYellowPagesDetails(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	stub.pages["https://www.yellowpages.com/biz/acme-offices"] = []byte(ypDetailPage)
	yp := NewYellowPages(stub)

	in := model.RawListing{
		Name:      "Acme Offices",
		DetailURL: "https://www.yellowpages.com/biz/acme-offices",
	}
	out, err := yp.Details(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Family-run property management firm operating three office parks.", out.Description)
	assert.Equal(t, "info@acme.example.com", out.Email)
	assert.Equal(t, "Owner", out.ContactTitle)
	assert.Equal(t, "Jane Doe", out.ContactName)
	require.NotNil(t, out.YearBuilt)
	assert.Equal(t, 1998, *out.YearBuilt)
	require.NotNil(t, out.Sqft)
	assert.Equal(t, 24000, *out.Sqft)
}

func TestYellowPagesDetailsKeepsTextualSize(t *testing.T) {
	t.Parallel()

	page := `<html>
<dl class="about"><dt>Building Size</dt><dd>Large office complex</dd></dl>
</html>`

	stub := newStubFetcher()
	stub.pages["https://www.yellowpages.com/biz/x"] = []byte(page)
	yp := NewYellowPages(stub)

	out, err := yp.Details(context.Background(), model.RawListing{Name: "X", DetailURL: "https://www.yellowpages.com/biz/x"})
	require.NoError(t, err)
	assert.Nil(t, out.Sqft)
	assert.Contains(t, out.Description, "Building size: Large office complex")
}

func TestYellowPagesDetailsWithoutURL(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	yp := NewYellowPages(stub)

	in := model.RawListing{Name: "No Page Co"}
	out, err := yp.Details(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Empty(t, stub.urls)
}

func TestYellowPagesDetailsFetchError(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	stub.errs["https://www.yellowpages.com/biz/x"] = errors.New("timeout")
	yp := NewYellowPages(stub)

	in := model.RawListing{Name: "X", DetailURL: "https://www.yellowpages.com/biz/x"}
	out, err := yp.Details(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, in, out)
}
