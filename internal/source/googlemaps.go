package source

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/model"
)

const (
	gmBaseURL      = "https://www.google.com/maps/search/"
	gmFeedSelector = `div[role="feed"]`

	// Each scroll of the results panel loads roughly a page of places.
	gmScrolls = 3
)

var (
	gmPlaceRe = regexp.MustCompile(`(?is)<a[^>]+href="(https://www\.google\.com/maps/place/[^"]+)"[^>]*aria-label="([^"]+)"`)

	// "123 Main St, Columbus, OH 43215" with the zip optional.
	gmAddressRe = regexp.MustCompile(`(.*?),\s*(.*?),\s*([A-Z]{2})\b\s*(\d{5})?`)
	gmPhoneRe   = regexp.MustCompile(`\(?\d{3}\)?[ .-]?\d{3}[ .-]\d{4}`)
	gmCoordsRe  = regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`)
)

// renderer runs a page in a real browser and returns its DOM after
// scrolling a panel, which Maps needs before results exist in the HTML.
type renderer interface {
	FetchScrolled(ctx context.Context, url, selector string, count int) ([]byte, error)
}

// GoogleMaps scrapes the Maps search results panel through a headless
// browser. Results carry coordinates when the place link encodes them.
type GoogleMaps struct {
	renderer renderer
	baseURL  string
}

// NewGoogleMaps creates the adapter on top of a browser renderer.
func NewGoogleMaps(r renderer) *GoogleMaps {
	return &GoogleMaps{renderer: r, baseURL: gmBaseURL}
}

func (g *GoogleMaps) Name() string { return "googlemaps" }

// Search renders the results panel and parses place entries out of the
// DOM. A render failure, a consent or captcha wall, or a page with no
// place anchors at all makes the source unavailable.
func (g *GoogleMaps) Search(ctx context.Context, q model.Query) ([]model.RawListing, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	log := zap.L().With(zap.String("source", g.Name()))

	body, err := g.renderer.FetchScrolled(ctx, g.searchURL(q), gmFeedSelector, gmScrolls)
	if err != nil {
		return nil, Unavailable(g.Name(), "results render failed", err)
	}
	if blocked, kind := DetectBlock(body); blocked {
		return nil, Unavailable(g.Name(), fmt.Sprintf("blocked (%s)", kind), nil)
	}

	html := string(body)
	anchors := gmPlaceRe.FindAllStringSubmatchIndex(html, -1)
	if len(anchors) == 0 {
		return nil, Unavailable(g.Name(), "no place entries in rendered page", nil)
	}

	out := make([]model.RawListing, 0, len(anchors))
	seen := make(map[string]bool)
	for i, loc := range anchors {
		if len(out) >= limit {
			break
		}

		detailURL := html[loc[2]:loc[3]]
		name := htmlText(html[loc[4]:loc[5]])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		// The entry's card runs from this anchor to the next one.
		end := len(html)
		if i+1 < len(anchors) {
			end = anchors[i+1][0]
		}
		card := html[loc[0]:end]

		out = append(out, g.parseEntry(name, detailURL, card, q))
	}

	log.Debug("parsed place entries", zap.Int("anchors", len(anchors)), zap.Int("kept", len(out)))
	return out, nil
}

func (g *GoogleMaps) searchURL(q model.Query) string {
	category := q.Category
	if category == "" {
		category = "commercial buildings"
	}
	query := fmt.Sprintf("%s in %s", category, q.Location())
	return g.baseURL + strings.ReplaceAll(query, " ", "+")
}

func (g *GoogleMaps) parseEntry(name, detailURL, card string, q model.Query) model.RawListing {
	l := model.RawListing{
		Name:      name,
		City:      q.City,
		State:     q.State,
		Category:  q.Category,
		DetailURL: detailURL,
		Source:    g.Name(),
		ScrapedAt: time.Now(),
	}
	if l.Category == "" {
		l.Category = "commercial buildings"
	}

	text := htmlText(card)
	if m := gmAddressRe.FindStringSubmatch(text); m != nil {
		street := strings.TrimSpace(m[1])
		// The name often precedes the address in the flattened card text.
		if idx := strings.LastIndex(street, name); idx >= 0 {
			street = strings.TrimSpace(street[idx+len(name):])
		}
		street = strings.Trim(street, " ·-")
		if street != "" {
			l.Street = street
			l.City = strings.TrimSpace(m[2])
			l.State = m[3]
			l.Zip = m[4]
		}
	}
	l.Phone = gmPhoneRe.FindString(text)

	for _, href := range hrefRe.FindAllStringSubmatch(card, -1) {
		u := href[1]
		if strings.HasPrefix(u, "http") && !strings.Contains(u, "google.com") {
			l.Website = u
			break
		}
	}

	if m := gmCoordsRe.FindStringSubmatch(detailURL); m != nil {
		if lat, err := strconv.ParseFloat(m[1], 64); err == nil {
			if lng, err := strconv.ParseFloat(m[2], 64); err == nil {
				l.Latitude = &lat
				l.Longitude = &lng
			}
		}
	}

	return l
}
