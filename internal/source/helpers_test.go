package source

import (
	"context"
	"sync"

	"github.com/logiclamp/leadscout/internal/model"
)

// stubFetcher serves canned bodies by URL and records what was asked.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string][]byte
	errs  map[string]error
	urls  []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: make(map[string][]byte), errs: make(map[string]error)}
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.urls = append(s.urls, url)
	s.mu.Unlock()
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if body, ok := s.pages[url]; ok {
		return body, nil
	}
	return nil, &SourceUnavailableError{Source: "stub", Reason: "no page for " + url}
}

// stubRenderer plays the browser role for the maps adapter.
type stubRenderer struct {
	body     []byte
	err      error
	url      string
	selector string
	scrolls  int
}

func (s *stubRenderer) FetchScrolled(_ context.Context, url, selector string, count int) ([]byte, error) {
	s.url = url
	s.selector = selector
	s.scrolls = count
	if s.err != nil {
		return nil, s.err
	}
	return s.body, nil
}

// stubAdapter returns fixed listings or a fixed error.
type stubAdapter struct {
	name     string
	listings []model.RawListing
	err      error
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Search(context.Context, model.Query) ([]model.RawListing, error) {
	return s.listings, s.err
}
