package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewEntry(id, user string, score int, content string, at int64) []interface{} {
	return []interface{}{id, []interface{}{user}, score, nil, content, []interface{}{at}}
}

// batchResponse renders entries the way the batchexecute endpoint does:
// an anti-hijack prefix, then a frame whose payload is JSON in a string.
func batchResponse(t *testing.T, token string, entries ...[]interface{}) string {
	t.Helper()
	list := make([]interface{}, len(entries))
	for i, e := range entries {
		list[i] = e
	}
	payload, err := json.Marshal([]interface{}{list, []interface{}{nil, token}})
	require.NoError(t, err)
	envelope, err := json.Marshal([]interface{}{
		[]interface{}{"wrb.fr", rpcID, string(payload), nil, nil, nil, "generic"},
	})
	require.NoError(t, err)
	return ")]}'\n\n" + string(envelope)
}

func newTestScraper(server *httptest.Server) *PlayStore {
	p := NewPlayStore("en", "in")
	p.baseURL = server.URL
	p.client = server.Client()
	return p
}

func TestFetchReviews_ParsesPage(t *testing.T) {
	var gotReq string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotReq = r.PostForm.Get("f.req")
		w.Write([]byte(batchResponse(t, "",
			reviewEntry("gp:AOqpTOE1", "Asha", 4, "great app &amp; <b>fast</b> delivery", 1719830000),
			reviewEntry("gp:AOqpTOE2", "Ravi", 1, "the delivery was delayed by two hours", 1719830100),
		)))
	}))
	defer server.Close()

	reviews, err := newTestScraper(server).FetchReviews(context.Background(), "in.swiggy.android", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	assert.Contains(t, gotReq, "in.swiggy.android")

	first := reviews[0]
	assert.Equal(t, "great app & fast delivery", first.Content, "markup and entities must be flattened")
	assert.Equal(t, 4, first.Score)
	assert.Equal(t, "Asha", first.UserName)
	assert.Equal(t, time.Unix(1719830000, 0).UTC(), first.At.UTC())
	assert.NotEqual(t, uuid.Nil, first.ID)

	again, err := newTestScraper(server).FetchReviews(context.Background(), "in.swiggy.android", 10)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again[0].ID, "store review ids must map to stable UUIDs")
}

func TestFetchReviews_Pagination(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		requests = append(requests, r.PostForm.Get("f.req"))
		if len(requests) == 1 {
			w.Write([]byte(batchResponse(t, "NEXT",
				reviewEntry("gp:1", "A", 5, "first", 1719830000),
				reviewEntry("gp:2", "B", 5, "second", 1719830001),
			)))
			return
		}
		w.Write([]byte(batchResponse(t, "",
			reviewEntry("gp:3", "C", 5, "third", 1719830002),
		)))
	}))
	defer server.Close()

	reviews, err := newTestScraper(server).FetchReviews(context.Background(), "app", 3)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)
	require.Len(t, requests, 2)
	assert.Contains(t, requests[1], "NEXT", "second page must carry the continuation token")
}

func TestFetchReviews_CapsAtCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(batchResponse(t, "MORE",
			reviewEntry("gp:1", "A", 5, "first", 1719830000),
			reviewEntry("gp:2", "B", 5, "second", 1719830001),
			reviewEntry("gp:3", "C", 5, "third", 1719830002),
		)))
	}))
	defer server.Close()

	reviews, err := newTestScraper(server).FetchReviews(context.Background(), "app", 2)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestFetchReviews_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestScraper(server).FetchReviews(context.Background(), "app", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestFetchReviews_PartialOnPaginationFailure(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(batchResponse(t, "NEXT",
				reviewEntry("gp:1", "A", 5, "first", 1719830000),
			)))
			return
		}
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	reviews, err := newTestScraper(server).FetchReviews(context.Background(), "app", 5)
	require.NoError(t, err, "a mid-pagination failure returns what was fetched")
	assert.Len(t, reviews, 1)
}

func TestFetchReviews_MalformedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a batchexecute response"))
	}))
	defer server.Close()

	_, err := newTestScraper(server).FetchReviews(context.Background(), "app", 5)
	require.Error(t, err)
}

func TestFetchReviews_EmptyAppID(t *testing.T) {
	_, err := NewPlayStore("en", "in").FetchReviews(context.Background(), "", 5)
	require.Error(t, err)
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "plain text stays", stripMarkup("plain text stays"))
	assert.Equal(t, "bold claim", stripMarkup("<b>bold</b> claim"))
	assert.Equal(t, "fish & chips", stripMarkup("fish &amp; chips"))
}
