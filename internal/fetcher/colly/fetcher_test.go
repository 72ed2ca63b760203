package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

func TestFetcherURL(t *testing.T) {
	t.Parallel()

	f := New(Config{BaseURL: "https://www.sbsolver.com/"}, nil, nil)
	assert.Equal(t, "https://www.sbsolver.com/s/2345", f.URL(2345))
}

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	var gotPath, gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		gotUA.Store(r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>bee</html>"))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, UserAgent: "bee-test", Timeout: time.Second}, nil, nil)
	resp, err := f.Fetch(context.Background(), 17)
	require.NoError(t, err)

	assert.Equal(t, puzzle.ID(17), resp.ID)
	assert.Equal(t, srv.URL+"/s/17", resp.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>bee</html>", string(resp.Body))
	assert.Equal(t, "/s/17", gotPath.Load())
	assert.Equal(t, "bee-test", gotUA.Load())
}

func TestFetchSameIDTwice(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL}, nil, nil)
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), 5)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchNon2xxIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL}, nil, nil)
	_, err := f.Fetch(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))
	assert.Contains(t, err.Error(), "404")
}

func TestFetchNonAuthoritative2xxSucceeds(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		_, _ = w.Write([]byte("cached"))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL}, nil, nil)
	resp, err := f.Fetch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNonAuthoritativeInfo, resp.StatusCode)
	assert.Equal(t, "cached", string(resp.Body))
}

func TestFetchConcurrentCallsShareCollectorSafely(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, UserAgent: "bee-test", Timeout: 5 * time.Second}, nil, nil)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	bodies := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.Fetch(context.Background(), puzzle.ID(i+1))
			errs[i] = err
			bodies[i] = string(resp.Body)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("/s/%d", i+1), bodies[i])
	}
	assert.Equal(t, int32(workers), hits.Load())
}

func TestFetchTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	f := New(Config{BaseURL: base, Timeout: time.Second}, nil, nil)
	_, err := f.Fetch(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStatus))
}

func TestFetchWaitsOnThrottle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	throttle := &stubThrottle{}
	f := New(Config{BaseURL: srv.URL}, throttle, nil)
	_, err := f.Fetch(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/s/9"}, throttle.urls)
}

func TestFetchThrottleErrorSkipsRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL}, &stubThrottle{err: context.Canceled}, nil)
	_, err := f.Fetch(context.Background(), 9)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestFetchContextCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	f := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{}, nil, nil)
	var result puzzle.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Unix(0, 0), &result, &fetchErr)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: []byte("body")})
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "body", string(result.Body))
	require.NoError(t, fetchErr)

	hooks.onResponse(&colly.Response{StatusCode: http.StatusNotFound, Body: []byte("missing")})
	assert.ErrorIs(t, fetchErr, ErrStatus)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, "body", string(result.Body))

	hooks.onError(&colly.Response{}, errors.New("boom"))
	require.Error(t, fetchErr)
	assert.Equal(t, "boom", fetchErr.Error())

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("Bad Gateway"))
	assert.ErrorIs(t, fetchErr, ErrStatus)
	assert.Equal(t, http.StatusBadGateway, result.StatusCode)
}

func TestBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", RespectRobots: true}, nil, nil)
	collector := f.buildCollector()
	assert.NotSame(t, f.baseCollector, collector)
	assert.Equal(t, "coverage-agent", collector.UserAgent)
	assert.False(t, collector.IgnoreRobotsTxt)
	assert.True(t, collector.AllowURLRevisit)
	assert.True(t, collector.ParseHTTPErrorResponse)
}

type stubThrottle struct {
	urls []string
	err  error
}

func (s *stubThrottle) Wait(_ context.Context, url string) error {
	s.urls = append(s.urls, url)
	return s.err
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
