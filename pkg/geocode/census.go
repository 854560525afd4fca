package geocode

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	censusBaseURL   = "https://geocoding.geo.census.gov/geocoder"
	censusBenchmark = "Public_AR_Current"

	// The batch endpoint accepts at most 10,000 addresses per file.
	censusBatchLimit = 10000
)

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			MatchedAddress string `json:"matchedAddress"`
			Coordinates    struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"coordinates"`
		} `json:"addressMatches"`
	} `json:"result"`
}

func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("address", formatOneLine(addr))
	q.Set("benchmark", censusBenchmark)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/locations/onelineaddress?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: census returned status %d", resp.StatusCode)
	}

	var cr censusResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, eris.Wrap(err, "geocode: decode census response")
	}

	if len(cr.Result.AddressMatches) == 0 {
		return &Result{ID: addr.ID, Source: "census"}, nil
	}

	// Coordinates come back as x=longitude, y=latitude.
	m := cr.Result.AddressMatches[0]
	return &Result{
		ID:        addr.ID,
		Latitude:  m.Coordinates.Y,
		Longitude: m.Coordinates.X,
		Source:    "census",
		Quality:   "rooftop",
		Matched:   true,
	}, nil
}

func (g *geocoder) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	// Batch responses arrive in arbitrary order keyed by the caller ID,
	// so give every input an ID and index them before sending.
	inputs := make([]AddressInput, len(addrs))
	copy(inputs, addrs)
	for i := range inputs {
		if inputs[i].ID == "" {
			inputs[i].ID = strconv.Itoa(i)
		}
	}

	results := make([]Result, len(inputs))
	byID := make(map[string]int, len(inputs))
	for i, in := range inputs {
		byID[in.ID] = i
		results[i] = Result{ID: in.ID, Source: "census"}
	}

	for start := 0; start < len(inputs); start += censusBatchLimit {
		end := start + censusBatchLimit
		if end > len(inputs) {
			end = len(inputs)
		}
		chunk := inputs[start:end]
		if err := g.censusBatch(ctx, chunk, results, byID); err != nil {
			if ctx.Err() != nil {
				return results, err
			}
			zap.L().Warn("geocode: batch request failed, retrying addresses individually",
				zap.Int("addresses", len(chunk)),
				zap.Error(err))
			if err := g.batchFallback(ctx, chunk, results, byID); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

// censusBatch posts one chunk of addresses to the batch endpoint and fills
// matched rows into results.
func (g *geocoder) censusBatch(ctx context.Context, inputs []AddressInput, results []Result, byID map[string]int) error {
	if err := g.wait(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("benchmark", censusBenchmark); err != nil {
		return eris.Wrap(err, "geocode: write benchmark field")
	}
	fw, err := mw.CreateFormFile("addressFile", "addresses.csv")
	if err != nil {
		return eris.Wrap(err, "geocode: create address file")
	}
	for _, in := range inputs {
		line := fmt.Sprintf("%s,%s,%s,%s,%s\n",
			in.ID, csvField(in.Street), csvField(in.City), csvField(in.State), csvField(in.ZipCode))
		if _, err := io.WriteString(fw, line); err != nil {
			return eris.Wrap(err, "geocode: write address row")
		}
	}
	if err := mw.Close(); err != nil {
		return eris.Wrap(err, "geocode: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/locations/addressbatch", &buf)
	if err != nil {
		return eris.Wrap(err, "geocode: build batch request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "geocode: census batch request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("geocode: census batch returned status %d", resp.StatusCode)
	}

	// Each response line is: id, input address, Match/No_Match/Tie,
	// Exact/Non_Exact, matched address, "lon,lat", TIGER line ID, side.
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := splitCSVLine(line)
		if len(fields) < 3 {
			continue
		}
		idx, ok := byID[fields[0]]
		if !ok {
			continue
		}
		if !strings.EqualFold(fields[2], "Match") || len(fields) < 6 {
			continue
		}
		lon, lat, err := parseCensusCoords(fields[5])
		if err != nil {
			zap.L().Debug("geocode: unparseable batch coordinates",
				zap.String("id", fields[0]),
				zap.Error(err))
			continue
		}
		results[idx] = Result{
			ID:        fields[0],
			Latitude:  lat,
			Longitude: lon,
			Source:    "census",
			Quality:   censusBatchQuality(fields[3]),
			Matched:   true,
		}
	}
	return eris.Wrap(sc.Err(), "geocode: read batch response")
}

// batchFallback resolves a failed chunk one address at a time. Individual
// failures leave the input unmatched; only context cancellation aborts.
func (g *geocoder) batchFallback(ctx context.Context, inputs []AddressInput, results []Result, byID map[string]int) error {
	for _, in := range inputs {
		res, err := g.Geocode(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			zap.L().Debug("geocode: single lookup failed",
				zap.String("id", in.ID),
				zap.Error(err))
			continue
		}
		results[byID[in.ID]] = *res
	}
	return nil
}

// formatOneLine joins the populated address parts for the one-line endpoint.
func formatOneLine(addr AddressInput) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.ZipCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// csvField quotes a field for the batch address file when needed.
func csvField(s string) string {
	if strings.ContainsAny(s, `",`) {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// splitCSVLine splits one batch response line. The endpoint quotes fields
// containing commas, including the coordinate pair.
func splitCSVLine(line string) []string {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuote && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuote = !inQuote
		case c == ',' && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// parseCensusCoords parses the "lon,lat" pair from a batch response row.
func parseCensusCoords(s string) (lon, lat float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, eris.Errorf("geocode: malformed coordinate pair %q", s)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse longitude")
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse latitude")
	}
	return lon, lat, nil
}

func censusBatchQuality(exact string) string {
	if strings.EqualFold(exact, "Exact") {
		return "rooftop"
	}
	return "range"
}
