package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/logiclamp/leadscout/internal/model"
)

const feedCSV = `Company,Street Address,City,State,Postal Code,Phone,Website,Email,Industry,Year Built,Square Feet,Latitude,Longitude
Acme Offices,123 Main St,Columbus,OH,43215,(614) 555-0142,https://acme.example.com,info@acme.example.com,Office Buildings,1998,24000,39.96,-82.99
Lakeside Mills,78 Shore Dr,Cleveland,OH,44101,(216) 555-0101,,,Manufacturing,,,,
,1 Nameless Way,Columbus,OH,43215,,,,,,,,
Summit Plaza,500 Summit Ave,Columbus,OH,,,,,Office Buildings,,,,
`

func TestFeedCSVMapsAndFilters(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	stub.pages["https://data.example.com/listings.csv"] = []byte(feedCSV)
	f := NewFeed(stub, newStubFetcher(), FeedOptions{URL: "https://data.example.com/listings.csv"})

	listings, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH", Limit: 10})
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Acme Offices", first.Name)
	assert.Equal(t, "123 Main St", first.Street)
	assert.Equal(t, "Columbus", first.City)
	assert.Equal(t, "OH", first.State)
	assert.Equal(t, "43215", first.Zip)
	assert.Equal(t, "(614) 555-0142", first.Phone)
	assert.Equal(t, "https://acme.example.com", first.Website)
	assert.Equal(t, "info@acme.example.com", first.Email)
	assert.Equal(t, "Office Buildings", first.Category)
	assert.Equal(t, "feed", first.Source)
	require.NotNil(t, first.YearBuilt)
	assert.Equal(t, 1998, *first.YearBuilt)
	require.NotNil(t, first.Sqft)
	assert.Equal(t, 24000, *first.Sqft)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 39.96, *first.Latitude, 1e-6)
	require.NotNil(t, first.Longitude)
	assert.InDelta(t, -82.99, *first.Longitude, 1e-6)

	assert.Equal(t, "Summit Plaza", listings[1].Name)
}

func TestFeedJSONCoercesNumbers(t *testing.T) {
	t.Parallel()

	body := `[
  {"name": "Acme Offices", "street": "123 Main St", "city": "Columbus", "state": "OH",
   "zip": "43215", "year_built": 1998, "sqft": 24000, "lat": 39.96, "lng": -82.99},
  {"company": "Summit Plaza", "city": "Columbus", "state": "OH"}
]`

	stub := newStubFetcher()
	stub.pages["https://data.example.com/listings.json"] = []byte(body)
	f := NewFeed(stub, newStubFetcher(), FeedOptions{URL: "https://data.example.com/listings.json"})

	listings, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH", Limit: 10})
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Acme Offices", first.Name)
	require.NotNil(t, first.YearBuilt)
	assert.Equal(t, 1998, *first.YearBuilt)
	require.NotNil(t, first.Sqft)
	assert.Equal(t, 24000, *first.Sqft)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 39.96, *first.Latitude, 1e-6)

	assert.Equal(t, "Summit Plaza", listings[1].Name)
}

func TestFeedXLSX(t *testing.T) {
	t.Parallel()

	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Listings")
	require.NoError(t, err)
	for _, row := range [][]string{
		{"Business Name", "Address", "City", "St", "Zip Code"},
		{"Acme Offices", "123 Main St", "Columbus", "OH", "43215"},
		{"Summit Plaza", "500 Summit Ave", "Columbus", "OH", "43215"},
	} {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	path := filepath.Join(t.TempDir(), "listings.xlsx")
	require.NoError(t, wb.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	stub := newStubFetcher()
	stub.pages["https://data.example.com/listings.xlsx"] = data
	f := NewFeed(stub, newStubFetcher(), FeedOptions{URL: "https://data.example.com/listings.xlsx"})

	listings, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH", Limit: 10})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Acme Offices", listings[0].Name)
	assert.Equal(t, "123 Main St", listings[0].Street)
	assert.Equal(t, "43215", listings[0].Zip)
}

func TestFeedFTPUsesFTPFetcher(t *testing.T) {
	t.Parallel()

	httpStub := newStubFetcher()
	ftpStub := newStubFetcher()
	ftpStub.pages["ftp://feeds.example.com/listings.csv"] = []byte("Company,City,State\nAcme,Columbus,OH\n")
	f := NewFeed(httpStub, ftpStub, FeedOptions{URL: "ftp://feeds.example.com/listings.csv"})

	listings, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Empty(t, httpStub.urls)
	assert.Len(t, ftpStub.urls, 1)
}

func TestFeedMissingURLIsUnavailable(t *testing.T) {
	t.Parallel()

	f := NewFeed(newStubFetcher(), newStubFetcher(), FeedOptions{})

	_, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH"})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "no feed url configured")
}

func TestFeedDownloadFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	stub.errs["https://data.example.com/listings.csv"] = errors.New("503 from origin")
	f := NewFeed(stub, newStubFetcher(), FeedOptions{URL: "https://data.example.com/listings.csv"})

	_, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH"})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestFeedUnrecognizedFormatIsUnavailable(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	stub.pages["https://data.example.com/listings.txt"] = []byte("whatever")
	f := NewFeed(stub, newStubFetcher(), FeedOptions{URL: "https://data.example.com/listings.txt"})

	_, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH"})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), `unrecognized feed format "txt"`)
}

func TestFeedFormatOverride(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	stub.pages["https://data.example.com/export"] = []byte("Company,City,State\nAcme,Columbus,OH\n")
	f := NewFeed(stub, newStubFetcher(), FeedOptions{URL: "https://data.example.com/export", Format: "csv"})

	listings, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestFeedHonorsLimit(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	stub.pages["https://data.example.com/listings.csv"] = []byte(feedCSV)
	f := NewFeed(stub, newStubFetcher(), FeedOptions{URL: "https://data.example.com/listings.csv"})

	listings, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestFeedFillsLocationFromQuery(t *testing.T) {
	t.Parallel()

	stub := newStubFetcher()
	stub.pages["https://data.example.com/listings.csv"] = []byte("Company,Address\nAcme,123 Main St\n")
	f := NewFeed(stub, newStubFetcher(), FeedOptions{URL: "https://data.example.com/listings.csv"})

	listings, err := f.Search(context.Background(), model.Query{City: "Columbus", State: "OH", Category: "offices", Limit: 5})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Columbus", listings[0].City)
	assert.Equal(t, "OH", listings[0].State)
	assert.Equal(t, "offices", listings[0].Category)
}
