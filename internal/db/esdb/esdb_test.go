package esdb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/urlshrtload/internal/report"
)

type fakeNode struct {
	mu        sync.Mutex
	docs      map[string]report.Report
	refreshes int
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	node := &fakeNode{docs: map[string]report.Report{}}

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"fake","cluster_name":"test","version":{"number":"6.8.23"},"tagline":"You Know, for Search"}`))
	})
	r.Put("/{index}/_doc/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var doc report.Report
		require.NoError(t, json.Unmarshal(body, &doc))

		node.mu.Lock()
		node.docs[chi.URLParam(r, "index")+"/"+chi.URLParam(r, "id")] = doc
		node.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_index":"` + chi.URLParam(r, "index") + `","_type":"_doc","_id":"` +
			chi.URLParam(r, "id") + `","_version":1,"result":"created"}`))
	})
	r.Post("/{index}/_refresh", func(w http.ResponseWriter, r *http.Request) {
		node.mu.Lock()
		node.refreshes++
		node.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_shards":{"total":1,"successful":1,"failed":0}}`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return node, srv
}

func TestSaveReport(t *testing.T) {
	node, srv := newFakeNode(t)

	db, err := New(srv.URL, WithIndex("reports"), WithBasicAuth("elastic", "changeme"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	require.NoError(t, db.Ping(context.Background()))

	r := report.Report{ID: "0b7e5b8a-5a3b-4d0e-9d52-ff4a3a1c4b11", Profile: "fixed", Users: 3}
	require.NoError(t, db.SaveReport(context.Background(), r))

	node.mu.Lock()
	defer node.mu.Unlock()
	require.Contains(t, node.docs, "reports/"+r.ID)
	assert.Equal(t, "fixed", node.docs["reports/"+r.ID].Profile)
	assert.Equal(t, 3, node.docs["reports/"+r.ID].Users)
	assert.Equal(t, 1, node.refreshes)
}

func TestSaveReportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception","reason":"failed to parse"},"status":400}`))
	}))
	defer srv.Close()

	db, err := New(srv.URL)
	require.NoError(t, err)

	err = db.SaveReport(context.Background(), report.Report{ID: "x"})
	assert.Error(t, err)
}
