package node_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ltonetwork/indexer/pkg/node"
	"go.uber.org/zap/zaptest"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestHTTPClient(handler http.Handler, opts node.Opts) *node.HTTPClient {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			resp := rec.Result()
			if resp.Body == nil {
				resp.Body = http.NoBody
			}
			return resp, nil
		}),
		Timeout: 5 * time.Second,
	}

	if len(opts.Endpoints) == 0 {
		opts.Endpoints = []string{"http://mock"}
	}
	opts.HTTPClient = httpClient
	return node.NewHTTPWithOpts(opts)
}

func newTestClient(t *testing.T, handler http.Handler) *node.Client {
	return node.NewClient(newTestHTTPClient(handler, node.Opts{APIKey: "secret"}), 500000000, zaptest.NewLogger(t))
}
