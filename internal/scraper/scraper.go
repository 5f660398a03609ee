// Package scraper fetches app reviews from the Google Play Store through
// the unauthenticated batchexecute endpoint the web UI itself uses. The
// categorization pipeline treats its output purely as input data.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"insitegent/internal/inputprocessor"
	"insitegent/internal/models"
)

const (
	defaultBaseURL = "https://play.google.com"
	rpcID          = "UsvDTd"

	// The endpoint serves at most this many reviews per call; larger
	// requests paginate with a continuation token.
	maxPageSize = 199

	sortNewest = 2
)

// Scraper fetches the most recent reviews for an app.
type Scraper interface {
	FetchReviews(ctx context.Context, appID string, count int) ([]models.Review, error)
}

// PlayStore scrapes reviews for one store locale.
type PlayStore struct {
	client  *http.Client
	baseURL string
	lang    string
	country string
	proc    inputprocessor.Processor
}

var _ Scraper = (*PlayStore)(nil)

// NewPlayStore returns a scraper for the given locale, e.g. ("en", "in").
func NewPlayStore(lang, country string) *PlayStore {
	if lang == "" {
		lang = "en"
	}
	if country == "" {
		country = "us"
	}
	return &PlayStore{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		lang:    lang,
		country: country,
		proc:    inputprocessor.New(),
	}
}

// FetchReviews returns up to count reviews for appID, newest first. A
// failure on the first page is an error; a failure mid-pagination returns
// the reviews collected so far.
func (p *PlayStore) FetchReviews(ctx context.Context, appID string, count int) ([]models.Review, error) {
	if appID == "" {
		return nil, fmt.Errorf("scraper: app id is required")
	}
	if count <= 0 {
		count = 100
	}

	var raws []inputprocessor.RawReview
	token := ""
	for len(raws) < count {
		want := count - len(raws)
		if want > maxPageSize {
			want = maxPageSize
		}

		page, next, err := p.fetchPage(ctx, appID, want, token)
		if err != nil {
			if len(raws) == 0 {
				return nil, err
			}
			log.WithError(err).WithField("fetched", len(raws)).Warn("Pagination aborted, returning partial result")
			break
		}
		raws = append(raws, page...)
		if next == "" || len(page) == 0 {
			break
		}
		token = next
	}
	if len(raws) > count {
		raws = raws[:count]
	}

	reviews := p.proc.ProcessAll(raws)
	log.WithFields(log.Fields{
		"app_id":  appID,
		"reviews": len(reviews),
	}).Info("Fetched reviews")
	return reviews, nil
}

func (p *PlayStore) fetchPage(ctx context.Context, appID string, count int, token string) ([]inputprocessor.RawReview, string, error) {
	form := url.Values{"f.req": {buildRequest(appID, count, token)}}
	endpoint := fmt.Sprintf("%s/_/PlayStoreUi/data/batchexecute?hl=%s&gl=%s",
		p.baseURL, url.QueryEscape(p.lang), url.QueryEscape(p.country))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("scraper: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("scraper: executing request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, "", fmt.Errorf("scraper: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("scraper: play store returned %d", resp.StatusCode)
	}

	payload, err := unwrapEnvelope(body)
	if err != nil {
		return nil, "", err
	}
	return parseReviews(payload)
}

// buildRequest assembles the f.req body for one page. The inner request is
// itself a JSON string inside the RPC frame.
func buildRequest(appID string, count int, token string) string {
	tok := "null"
	if token != "" {
		b, _ := json.Marshal(token)
		tok = string(b)
	}
	id, _ := json.Marshal(appID)
	inner := fmt.Sprintf(`[null,null,[2,%d,[%d,null,%s],null,[]],[%s,7]]`, sortNewest, count, tok, string(id))

	frame := []interface{}{[]interface{}{[]interface{}{rpcID, inner, nil, "generic"}}}
	b, _ := json.Marshal(frame)
	return string(b)
}

// unwrapEnvelope strips the anti-hijack prefix and returns the payload of
// the reviews RPC frame, which is JSON encoded as a string.
func unwrapEnvelope(body []byte) ([]byte, error) {
	text := string(body)
	if i := strings.IndexByte(text, '\n'); i >= 0 && strings.HasPrefix(text, ")]}'") {
		text = text[i+1:]
	}
	// Frames may be preceded by a byte-length line.
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '['); i > 0 {
		text = text[i:]
	}

	var frames []json.RawMessage
	if err := json.Unmarshal([]byte(text), &frames); err != nil {
		return nil, fmt.Errorf("scraper: parsing response envelope: %w", err)
	}
	for _, raw := range frames {
		var frame []interface{}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if len(frame) < 3 {
			continue
		}
		kind, _ := frame[0].(string)
		id, _ := frame[1].(string)
		if kind != "wrb.fr" || id != rpcID {
			continue
		}
		payload, ok := frame[2].(string)
		if !ok {
			return nil, fmt.Errorf("scraper: reviews frame carries no payload")
		}
		return []byte(payload), nil
	}
	return nil, fmt.Errorf("scraper: no reviews frame in response")
}

// parseReviews extracts review entries and the continuation token from the
// unwrapped payload. Entries with unexpected shapes are skipped, not fatal.
func parseReviews(payload []byte) ([]inputprocessor.RawReview, string, error) {
	var result []interface{}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, "", fmt.Errorf("scraper: parsing reviews payload: %w", err)
	}
	if len(result) == 0 || result[0] == nil {
		return nil, "", nil
	}
	entries, ok := result[0].([]interface{})
	if !ok {
		return nil, "", fmt.Errorf("scraper: unexpected reviews payload shape")
	}

	raws := make([]inputprocessor.RawReview, 0, len(entries))
	for _, e := range entries {
		entry, ok := e.([]interface{})
		if !ok {
			continue
		}
		raw := inputprocessor.RawReview{
			ID:       asString(field(entry, 0)),
			UserName: asString(field(entry, 1, 0)),
			Content:  stripMarkup(asString(field(entry, 4))),
		}
		if score, ok := asFloat(field(entry, 2)); ok {
			raw.Score = strconv.Itoa(int(score))
		}
		if seconds, ok := asFloat(field(entry, 5, 0)); ok {
			raw.At = time.Unix(int64(seconds), 0).UTC().Format(time.RFC3339)
		}
		if raw.ID == "" && raw.Content == "" {
			continue
		}
		raws = append(raws, raw)
	}

	token := ""
	if len(result) > 1 {
		if cont, ok := result[len(result)-1].([]interface{}); ok && len(cont) > 0 {
			token = asString(cont[len(cont)-1])
		}
	}
	return raws, token, nil
}

// field walks nested arrays by index, returning nil when any step is out
// of range or not an array.
func field(entry []interface{}, path ...int) interface{} {
	var current interface{} = entry
	for _, i := range path {
		arr, ok := current.([]interface{})
		if !ok || i < 0 || i >= len(arr) {
			return nil
		}
		current = arr[i]
	}
	return current
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// stripMarkup flattens HTML markup occasionally present in review content
// down to its text.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	tok := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.WriteString(tok.Token().Data)
		}
	}
	return b.String()
}
