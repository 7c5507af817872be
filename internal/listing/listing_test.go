package listing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkLight/dyntree/internal/cache"
)

var sampleListing = Listing{
	{ID: 1, Name: "Europe", Code: "EU", Description: "Continent"},
	{ID: 2, Name: "Asia", Code: "AS"},
}

func TestListing_Helpers(t *testing.T) {
	assert.Equal(t, []int64{1, 2}, sampleListing.IDs())

	clone := sampleListing.Clone()
	clone[0].Name = "changed"
	assert.Equal(t, "Europe", sampleListing[0].Name)

	var empty Listing
	assert.NotNil(t, empty.Clone())
	assert.Empty(t, empty.Clone())

	assert.True(t, IsRoot(RootID))
	assert.False(t, IsRoot(5))
	assert.Equal(t, "-12", FormatID(-12))
}

func TestAnswer(t *testing.T) {
	tests := []struct {
		name    string
		answer  Answer
		failed  bool
		wantIDs []int64
	}{
		{name: "ok", answer: OK(sampleListing), wantIDs: []int64{1, 2}},
		{name: "success uppercase", answer: Answer{Status: "SUCCESS", Result: sampleListing}, wantIDs: []int64{1, 2}},
		{name: "empty status", answer: Answer{Result: sampleListing[:1]}, wantIDs: []int64{1}},
		{name: "null result", answer: Answer{Status: StatusOK}, wantIDs: []int64{}},
		{name: "error status", answer: Answer{Status: "Error", ErrorMessage: "boom"}, failed: true},
		{name: "fail status", answer: Answer{Status: StatusFail}, failed: true},
		{name: "code with ok status", answer: Answer{Status: StatusOK, ErrorCode: "E42"}, failed: true},
		{name: "failure helper", answer: Failure("E1", "no such parent"), failed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.failed, tt.answer.Failed())

			l, err := tt.answer.Listing(9)
			if tt.failed {
				var se *SourceError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, int64(9), se.ParentID)
				assert.True(t, IsSourceError(err))
				assert.False(t, IsTransport(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.Equal(t, tt.wantIDs, l.IDs())
		})
	}
}

func TestSourceError_Message(t *testing.T) {
	assert.Contains(t, (&SourceError{ParentID: 3, Code: "E1", Message: "gone"}).Error(), "E1: gone")
	assert.Contains(t, (&SourceError{ParentID: 3, Code: "E1"}).Error(), "E1")
	assert.Contains(t, (&SourceError{ParentID: 3, Message: "gone"}).Error(), "gone")
	assert.Contains(t, (&SourceError{ParentID: 3, Status: "fail"}).Error(), `"fail"`)
}

func TestNewHTTPSource_Validation(t *testing.T) {
	for _, raw := range []string{"", "tree.example", "ftp://tree.example/list", "http://", "::"} {
		_, err := NewHTTPSource(raw)
		assert.ErrorIs(t, err, ErrInvalidURL, "url %q", raw)
	}

	s, err := NewHTTPSource("https://tree.example/api/list?lang=ru")
	require.NoError(t, err)
	assert.Equal(t, "https://tree.example/api/list?lang=ru", s.URL())
}

func TestHTTPSource_RequestURL(t *testing.T) {
	s, err := NewHTTPSource("http://tree.example/list?lang=ru&parent=99")
	require.NoError(t, err)

	root, err := url.Parse(s.RequestURL(RootID))
	require.NoError(t, err)
	assert.False(t, root.Query().Has(ParentParam), "root request has no parent qualifier")
	assert.Equal(t, "ru", root.Query().Get("lang"))

	child, err := url.Parse(s.RequestURL(42))
	require.NoError(t, err)
	assert.Equal(t, "42", child.Query().Get(ParentParam))
	assert.Equal(t, "ru", child.Query().Get("lang"))
}

func TestHTTPSource_List(t *testing.T) {
	var lastQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get(ParentParam) {
		case "":
			_ = json.NewEncoder(w).Encode(OK(sampleListing))
		case "1":
			_ = json.NewEncoder(w).Encode(OK(nil))
		case "2":
			_ = json.NewEncoder(w).Encode(Failure("E_PARENT", "unknown parent"))
		case "3":
			_, _ = w.Write([]byte(`{"status":"ok","result":[{"id":`))
		case "4":
			http.Error(w, "backend exploded", http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"status":"ok","result":[{"id":"x"}]}`))
		}
	}))
	defer srv.Close()

	s, err := NewHTTPSource(srv.URL, WithLogger(zerolog.Nop()), WithTimeout(2*time.Second))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Root", func(t *testing.T) {
		l, err := s.List(ctx, RootID)
		require.NoError(t, err)
		if diff := cmp.Diff(sampleListing, l); diff != "" {
			t.Errorf("root listing mismatch (-want +got):\n%s", diff)
		}
		assert.Empty(t, lastQuery.Load())
	})

	t.Run("EmptyChildren", func(t *testing.T) {
		l, err := s.List(ctx, 1)
		require.NoError(t, err)
		assert.NotNil(t, l)
		assert.Empty(t, l)
		assert.Equal(t, "parent=1", lastQuery.Load())
	})

	t.Run("SourceError", func(t *testing.T) {
		_, err := s.List(ctx, 2)
		var se *SourceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "E_PARENT", se.Code)
		assert.Equal(t, "unknown parent", se.Message)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := s.List(ctx, 3)
		assert.ErrorIs(t, err, ErrMalformedAnswer)
	})

	t.Run("HTTPError", func(t *testing.T) {
		_, err := s.List(ctx, 4)
		require.ErrorIs(t, err, ErrTransport)
		assert.Contains(t, err.Error(), "HTTP 502")
		assert.Contains(t, err.Error(), "backend exploded")
	})

	t.Run("WrongTypes", func(t *testing.T) {
		_, err := s.List(ctx, 5)
		assert.ErrorIs(t, err, ErrMalformedAnswer)
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.List(cctx, RootID)
		assert.True(t, IsTransport(err))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	s, err := NewHTTPSource(addr, WithHTTPClient(&http.Client{Timeout: time.Second}))
	require.NoError(t, err)
	_, err = s.List(context.Background(), 7)
	assert.ErrorIs(t, err, ErrTransport)
}

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (c *countingSource) List(_ context.Context, parentID int64) (Listing, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	if parentID == 2 {
		return Listing{}, nil
	}
	return sampleListing.Clone(), nil
}

func TestCachedSource(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir(), true, 60, 10)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("MissThenHit", func(t *testing.T) {
		next := &countingSource{}
		cs := NewCachedSource(next, store, "http://tree.example", zerolog.Nop())

		first, err := cs.List(ctx, 1)
		require.NoError(t, err)
		second, err := cs.List(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, int32(1), next.calls.Load())
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("disk cache changed the listing (-first +second):\n%s", diff)
		}
	})

	t.Run("EmptyListingIsCached", func(t *testing.T) {
		next := &countingSource{}
		cs := NewCachedSource(next, store, "http://tree.example", zerolog.Nop())

		for range 2 {
			l, err := cs.List(ctx, 2)
			require.NoError(t, err)
			assert.NotNil(t, l)
			assert.Empty(t, l)
		}
		assert.Equal(t, int32(1), next.calls.Load())
	})

	t.Run("ScopesAreSeparate", func(t *testing.T) {
		next := &countingSource{}
		a := NewCachedSource(next, store, "http://a.example", zerolog.Nop())
		b := NewCachedSource(next, store, "http://b.example", zerolog.Nop())

		_, _ = a.List(ctx, 5)
		_, _ = b.List(ctx, 5)
		assert.Equal(t, int32(2), next.calls.Load())
	})

	t.Run("FailuresAreNotCached", func(t *testing.T) {
		boom := errors.New("boom")
		next := &countingSource{err: boom}
		cs := NewCachedSource(next, store, "http://failing.example", zerolog.Nop())

		_, err := cs.List(ctx, 1)
		assert.ErrorIs(t, err, boom)
		_, err = cs.List(ctx, 1)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int32(2), next.calls.Load())
	})

	t.Run("DisabledStorePassesThrough", func(t *testing.T) {
		disabled, err := cache.NewFileStore("", false, 60, 10)
		require.NoError(t, err)
		next := &countingSource{}
		cs := NewCachedSource(next, disabled, "http://tree.example", zerolog.Nop())

		_, _ = cs.List(ctx, 1)
		_, _ = cs.List(ctx, 1)
		assert.Equal(t, int32(2), next.calls.Load())

		nilStore := NewCachedSource(next, nil, "http://tree.example", zerolog.Nop())
		_, err = nilStore.List(ctx, 1)
		assert.NoError(t, err)
	})

	t.Run("CorruptEntryRefetches", func(t *testing.T) {
		next := &countingSource{}
		scope := "http://corrupt.example"
		require.NoError(t, store.Set(cache.ListingKey(scope, 1), []byte(`{"not":"a listing"}`)))
		cs := NewCachedSource(next, store, scope, zerolog.Nop())

		l, err := cs.List(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, l.IDs())
		assert.Equal(t, int32(1), next.calls.Load())
	})

	t.Run("CorruptEntryIsRemovedWhenRefetchFails", func(t *testing.T) {
		boom := errors.New("boom")
		next := &countingSource{err: boom}
		scope := "http://corrupt-down.example"
		key := cache.ListingKey(scope, 1)
		require.NoError(t, store.Set(key, []byte(`{"not":"a listing"}`)))
		cs := NewCachedSource(next, store, scope, zerolog.Nop())

		_, err := cs.List(ctx, 1)
		require.ErrorIs(t, err, boom)

		_, err = store.Get(key)
		assert.ErrorIs(t, err, cache.ErrNotFound, "broken entry is deleted, not left for the next read")
	})
}
