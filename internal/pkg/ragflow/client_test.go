package ragflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raggate/internal/model/system"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(NewHTTPClient(srv.URL+"/api/v1", "test-key", time.Second), 2*time.Second)
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": code, "message": message, "data": data})
}

func TestHTTPClient_RequestShape(t *testing.T) {
	var gotPath, gotAuth, gotQuery string
	var gotBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeEnvelope(w, 0, "", []map[string]interface{}{{"id": "ds1", "name": "a"}})
	})

	desc := true
	items, total, err := client.ListDatasets(context.Background(), ListOptions{Page: 2, PageSize: 5, Desc: &desc})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/datasets", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Contains(t, gotQuery, "page=2")
	assert.Contains(t, gotQuery, "desc=true")
	require.Len(t, items, 1)
	assert.Equal(t, "ds1", items[0].ID)
	assert.EqualValues(t, 1, total)

	require.NoError(t, client.DeleteDatasets(context.Background(), []string{"ds1", "ds2"}))
	assert.Equal(t, []interface{}{"ds1", "ds2"}, gotBody["ids"])
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		kind    Kind
		message string
		status  int
	}{
		{
			name:    "code error",
			handler: func(w http.ResponseWriter, r *http.Request) { writeEnvelope(w, 102, "dataset not found", nil) },
			kind:    KindResponse,
			message: "RAGFlow code error: dataset not found",
			status:  http.StatusBadRequest,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			kind:    KindUnavailable,
			message: "RAGFlow HTTP error 503",
			status:  http.StatusBadGateway,
		},
		{
			name:    "client error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			kind:    KindRequest,
			message: "RAGFlow HTTP error 404",
			status:  http.StatusBadRequest,
		},
		{
			name:    "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) },
			kind:    KindUnexpected,
			status:  http.StatusBadGateway,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			kind:    KindTimeout,
			message: "RAGFlow request timed out",
			status:  http.StatusGatewayTimeout,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			h := NewHTTPClient(srv.URL+"/api/v1", "k", 100*time.Millisecond)

			_, err := h.Do(context.Background(), http.MethodGet, "/datasets")
			require.Error(t, err)

			var rfErr *Error
			require.True(t, errors.As(err, &rfErr))
			assert.Equal(t, tc.kind, rfErr.Kind)
			if tc.message != "" {
				assert.Equal(t, tc.message, rfErr.Error())
			}
			assert.True(t, IsKind(err, tc.kind))

			se, ok := system.AsServiceError(err)
			require.True(t, ok)
			assert.Equal(t, system.CodeUpstreamError, se.Code)
			assert.Equal(t, tc.status, se.HTTPStatus)
		})
	}
}

func TestHTTPClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := NewHTTPClient(url+"/api/v1", "k", time.Second)
	_, err := h.Do(context.Background(), http.MethodGet, "/datasets")
	assert.True(t, IsKind(err, KindRequest))
	assert.True(t, strings.HasPrefix(err.Error(), "RAGFlow request failed:"))
}

func TestHTTPClient_PerCallTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeEnvelope(w, 0, "", nil)
	})

	_, err := client.HTTP().Do(context.Background(), http.MethodGet, "/slow", WithTimeout(50*time.Millisecond))
	assert.True(t, IsKind(err, KindTimeout))

	_, err = client.HTTP().Do(context.Background(), http.MethodGet, "/slow")
	assert.NoError(t, err)
}

func TestClient_UploadDocuments(t *testing.T) {
	var names []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/datasets/ds1/documents", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for _, fh := range r.MultipartForm.File["file"] {
			names = append(names, fh.Filename)
		}
		writeEnvelope(w, 0, "", []map[string]interface{}{
			{"id": "doc1", "name": "a.txt", "dataset_id": "ds1"},
			{"id": "doc2", "name": "b.txt", "dataset_id": "ds1"},
		})
	})

	docs, err := client.UploadDocuments(context.Background(), "ds1",
		File{Name: "a.txt", Reader: strings.NewReader("hello")},
		File{Name: "b.txt", Reader: strings.NewReader("world")},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc2", docs[1].ID)
}

func TestClient_ListDocumentsAndRetrieve(t *testing.T) {
	var retrieval RetrievalParams
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/datasets/ds1/documents":
			writeEnvelope(w, 0, "", map[string]interface{}{
				"docs":  []map[string]interface{}{{"id": "doc1", "name": "a.txt"}},
				"total": 7,
			})
		case "/api/v1/retrieval":
			_ = json.NewDecoder(r.Body).Decode(&retrieval)
			writeEnvelope(w, 0, "", map[string]interface{}{
				"chunks": []map[string]interface{}{{"id": "c1", "content": "x", "document_id": "doc1"}},
				"total":  1,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	docs, total, err := client.ListDocuments(context.Background(), "ds1", ListOptions{Keywords: "a"})
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
	assert.Equal(t, "a.txt", docs[0].Name)

	chunks, _, err := client.Retrieve(context.Background(), &RetrievalParams{Question: "q", DatasetIDs: []string{"ds1"}})
	require.NoError(t, err)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, 1024, retrieval.TopK)
	assert.Equal(t, 0.2, retrieval.SimilarityThreshold)
	assert.Equal(t, []string{}, retrieval.DocumentIDs)
}

func TestClient_DownloadDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			writeEnvelope(w, 102, "document not found", nil)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''%E6%8A%A5%E5%91%8A.pdf")
		_, _ = w.Write([]byte("pdf-bytes"))
	})

	dl, err := client.DownloadDocument(context.Background(), "ds1", "doc1")
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, "报告.pdf", dl.Filename)
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(body))

	_, err = client.DownloadDocument(context.Background(), "ds1", "missing")
	assert.True(t, IsKind(err, KindResponse))
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "attachment; filename*=UTF-8''%E6%8A%A5%E5%91%8A%20v1.pdf", ContentDisposition("报告 v1.pdf"))
	assert.Equal(t, "fallback", FilenameFromResponse(&http.Response{Header: http.Header{}}, "fallback"))
}
