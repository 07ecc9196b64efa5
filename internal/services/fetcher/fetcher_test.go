package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	logx "noticebot/pkg/logx"
)

const page = `<html><body>
<div class="header"><ul><li>Not a notice</li></ul></div>
<div class="partner-wrapper hero-slider owl-carousel owl-theme">
  <ul>
    <li><a href="../../pdf/results.pdf">Semester   results
        published</a></li>
    <li>Campus closed on <b>Friday</b></li>
    <li>   </li>
    <li><a href="https://other.org/x">External</a> <a href="../second">ignored</a></li>
  </ul>
</div>
</body></html>`

func newTestFetcher(url string, attempts int) *Fetcher {
	return New(Config{URL: url, Attempts: attempts, RetryDelay: time.Millisecond, Timeout: 2 * time.Second}, nil, logx.Nop())
}

func TestFetchExtractsCandidatesInOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent")
		}
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	got, err := newTestFetcher(srv.URL, 1).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []Candidate{
		{Text: "Semester results published", RawLink: "../../pdf/results.pdf"},
		{Text: "Campus closed on Friday"},
		{Text: "External ignored", RawLink: "https://other.org/x"},
	}
	if len(got) != len(want) {
		t.Fatalf("Fetch() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		handler   http.HandlerFunc
		attempts  int
		wantKind  ErrorKind
		wantCalls int32
	}{
		{
			name:      "not found is not retried",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			attempts:  3,
			wantKind:  KindStatus,
			wantCalls: 1,
		},
		{
			name:      "server error is retried",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			attempts:  3,
			wantKind:  KindStatus,
			wantCalls: 3,
		},
		{
			name:      "missing section",
			handler:   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html><body><ul><li>x</li></ul></body></html>")) },
			attempts:  3,
			wantKind:  KindMissingSection,
			wantCalls: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tc.handler(w, r)
			}))
			defer srv.Close()

			_, err := newTestFetcher(srv.URL, tc.attempts).Fetch(context.Background())
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("Fetch err = %v, want *FetchError", err)
			}
			if fe.Kind != tc.wantKind {
				t.Fatalf("Kind = %s, want %s (%v)", fe.Kind, tc.wantKind, err)
			}
			if got := calls.Load(); got != tc.wantCalls {
				t.Fatalf("server calls = %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestFetcher(url, 2).Fetch(context.Background())
	if !IsFetchError(err) {
		t.Fatalf("Fetch err = %v, want FetchError", err)
	}
	if !strings.Contains(err.Error(), url) {
		t.Fatalf("error %q does not name the URL", err)
	}
}

func TestFetchRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	got, err := newTestFetcher(srv.URL, 3).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(candidates) = %d, want 3", len(got))
	}
}
