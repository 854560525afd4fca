package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/fetcher"
	"github.com/logiclamp/leadscout/internal/model"
)

const ypBaseURL = "https://www.yellowpages.com"

var (
	ypCardStartRe  = regexp.MustCompile(`(?i)<div[^>]+class="[^"]*\bresult\b[^"]*"`)
	ypNameRe       = regexp.MustCompile(`(?is)<a[^>]+class="[^"]*business-name[^"]*"[^>]*>\s*(?:<span[^>]*>)?(.*?)</`)
	ypNameTagRe    = regexp.MustCompile(`(?i)<a[^>]+class="[^"]*business-name[^"]*"[^>]*>`)
	ypStreetRe     = regexp.MustCompile(`(?is)<div[^>]+class="[^"]*street-address[^"]*"[^>]*>(.*?)</div>`)
	ypLocalityRe   = regexp.MustCompile(`(?is)<div[^>]+class="[^"]*locality[^"]*"[^>]*>(.*?)</div>`)
	ypPhoneRe      = regexp.MustCompile(`(?is)<div[^>]+class="[^"]*phones[^"]*"[^>]*>(.*?)</div>`)
	ypWebsiteTagRe = regexp.MustCompile(`(?i)<a[^>]+class="[^"]*track-visit-website[^"]*"[^>]*>`)
	ypCategoryRe   = regexp.MustCompile(`(?is)<div[^>]+class="[^"]*categories[^"]*"[^>]*>(.*?)</div>`)
	ypYearsRe      = regexp.MustCompile(`(?is)years-in-business.*?<span[^>]*class="[^"]*number[^"]*"[^>]*>\s*(\d+)`)
	ypNextRe       = regexp.MustCompile(`(?i)<a[^>]+class="[^"]*\bnext\b[^"]*"[^>]*>`)

	// "Columbus, OH 43215" with the zip optional.
	ypLocalitySplitRe = regexp.MustCompile(`^(.*?),\s*([A-Za-z]{2})\b\s*(\d{5})?`)

	ypDescriptionRe = regexp.MustCompile(`(?is)<[^>]+class="[^"]*business-description[^"]*"[^>]*>(.*?)</`)
	ypEmailRe       = regexp.MustCompile(`(?i)href="mailto:([^"?]+)`)
	ypContactRe     = regexp.MustCompile(`(?is)<h2[^>]*>\s*(Owner|Manager|President|CEO)\s*</h2>\s*<p[^>]*>(.*?)</p>`)
	ypAboutPairRe   = regexp.MustCompile(`(?is)<dt[^>]*>(.*?)</dt>\s*<dd[^>]*>(.*?)</dd>`)

	digitsRe = regexp.MustCompile(`[\d,]{3,}`)
)

// YellowPages scrapes the static listing pages at yellowpages.com.
type YellowPages struct {
	fetcher fetcher.Fetcher
	baseURL string
}

// NewYellowPages creates the adapter on top of an HTTP fetcher.
func NewYellowPages(f fetcher.Fetcher) *YellowPages {
	return &YellowPages{fetcher: f, baseURL: ypBaseURL}
}

func (y *YellowPages) Name() string { return "yellowpages" }

// Search walks the paginated listing results for the query until the
// limit is reached or the pages run out. Unparseable cards are skipped;
// a failed or blocked first page makes the whole source unavailable.
func (y *YellowPages) Search(ctx context.Context, q model.Query) ([]model.RawListing, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	log := zap.L().With(zap.String("source", y.Name()))
	pageURL := y.searchURL(q)

	var out []model.RawListing
	skipped := 0
	for page := 1; pageURL != "" && len(out) < limit; page++ {
		body, err := y.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, Unavailable(y.Name(), "listing page fetch failed", err)
			}
			log.Warn("page fetch failed, stopping pagination", zap.Int("page", page), zap.Error(err))
			break
		}
		if blocked, kind := DetectBlock(body); blocked {
			if page == 1 {
				return nil, Unavailable(y.Name(), fmt.Sprintf("blocked (%s)", kind), nil)
			}
			log.Warn("blocked mid-pagination", zap.String("kind", string(kind)))
			break
		}

		html := string(body)
		cards := splitCards(html)
		if len(cards) == 0 {
			if page == 1 && !strings.Contains(html, "search-results") {
				return nil, Unavailable(y.Name(), "no recognizable results markup", nil)
			}
			break
		}

		for _, card := range cards {
			if len(out) >= limit {
				break
			}
			listing, err := y.parseCard(card, q)
			if err != nil {
				skipped++
				log.Debug("skipping unparseable card", zap.Error(err))
				continue
			}
			out = append(out, listing)
		}

		pageURL = y.nextPageURL(html)
	}

	if skipped > 0 {
		log.Info("skipped unparseable cards", zap.Int("count", skipped))
	}
	return out, nil
}

// Details fetches the listing's provider page and fills description,
// contact, and building fields the result card omits.
func (y *YellowPages) Details(ctx context.Context, listing model.RawListing) (model.RawListing, error) {
	if listing.DetailURL == "" {
		return listing, nil
	}

	body, err := y.fetcher.Fetch(ctx, listing.DetailURL)
	if err != nil {
		return listing, eris.Wrapf(err, "fetch detail page for %s", listing.Name)
	}
	html := string(body)

	if desc := htmlText(firstGroup(ypDescriptionRe, html)); desc != "" {
		listing.Description = desc
	}
	if m := ypEmailRe.FindStringSubmatch(html); m != nil && listing.Email == "" {
		listing.Email = strings.TrimSpace(m[1])
	}
	if m := ypContactRe.FindStringSubmatch(html); m != nil {
		listing.ContactTitle = htmlText(m[1])
		listing.ContactName = htmlText(m[2])
	}

	for _, m := range ypAboutPairRe.FindAllStringSubmatch(html, -1) {
		label := strings.ToLower(htmlText(m[1]))
		value := htmlText(m[2])
		if value == "" {
			continue
		}
		switch {
		case strings.Contains(label, "year established"):
			if year, err := strconv.Atoi(value); err == nil {
				listing.YearBuilt = &year
			}
		case strings.Contains(label, "building size"):
			if n := parseDigits(value); n > 0 {
				listing.Sqft = &n
			} else {
				// Keep non-numeric size wording for keyword inference.
				listing.Description = strings.TrimSpace(listing.Description + " Building size: " + value)
			}
		case strings.Contains(label, "email"):
			if listing.Email == "" {
				listing.Email = value
			}
		}
	}

	return listing, nil
}

func (y *YellowPages) searchURL(q model.Query) string {
	category := q.Category
	if category == "" {
		category = "office buildings"
	}
	params := url.Values{}
	params.Set("search_terms", category)
	params.Set("geo_location_terms", q.Location())
	return y.baseURL + "/search?" + params.Encode()
}

// splitCards slices the page into result-card fragments.
func splitCards(html string) []string {
	locs := ypCardStartRe.FindAllStringIndex(html, -1)
	cards := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(html)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		cards = append(cards, html[loc[0]:end])
	}
	return cards
}

func (y *YellowPages) parseCard(card string, q model.Query) (model.RawListing, error) {
	name := htmlText(firstGroup(ypNameRe, card))
	if name == "" {
		return model.RawListing{}, &ParseError{Source: y.Name(), Reason: "card without business name"}
	}

	l := model.RawListing{
		Name:      name,
		Street:    htmlText(firstGroup(ypStreetRe, card)),
		Phone:     htmlText(firstGroup(ypPhoneRe, card)),
		Category:  htmlText(firstGroup(ypCategoryRe, card)),
		City:      q.City,
		State:     q.State,
		Source:    y.Name(),
		ScrapedAt: time.Now(),
	}
	if l.Category == "" {
		l.Category = q.Category
	}

	if locality := htmlText(firstGroup(ypLocalityRe, card)); locality != "" {
		if m := ypLocalitySplitRe.FindStringSubmatch(locality); m != nil {
			l.City = strings.TrimSpace(m[1])
			l.State = strings.ToUpper(m[2])
			l.Zip = m[3]
		}
	}

	if tag := ypNameTagRe.FindString(card); tag != "" {
		l.DetailURL = y.absURL(firstGroup(hrefRe, tag))
	}
	if tag := ypWebsiteTagRe.FindString(card); tag != "" {
		l.Website = firstGroup(hrefRe, tag)
	}

	// Years in business approximates when the company set up shop.
	if m := ypYearsRe.FindStringSubmatch(card); m != nil {
		if years, err := strconv.Atoi(m[1]); err == nil && years > 0 {
			year := time.Now().Year() - years
			l.YearBuilt = &year
		}
	}

	return l, nil
}

func (y *YellowPages) nextPageURL(html string) string {
	tag := ypNextRe.FindString(html)
	if tag == "" || strings.Contains(tag, "disabled") {
		return ""
	}
	return y.absURL(firstGroup(hrefRe, tag))
}

func (y *YellowPages) absURL(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return y.baseURL + href
}

// parseDigits pulls the first comma-grouped number out of free text.
func parseDigits(s string) int {
	m := digitsRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
