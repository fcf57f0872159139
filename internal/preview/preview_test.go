package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFirstURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"check https://example.com/page out", "https://example.com/page"},
		{"no links here", ""},
		{"two http://a.com and http://b.com", "http://a.com"},
		{"trailing https://x.com/path?q=1", "https://x.com/path?q=1"},
	}
	for _, tt := range tests {
		if got := FirstURL(tt.in); got != tt.want {
			t.Errorf("FirstURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFetchParsesOpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
			<title>Fallback Title</title>
			<meta property="og:title" content="OG Title"/>
			<meta property="og:description" content="A description"/>
			<meta property="og:image" content="https://cdn.example.com/img.png"/>
		</head><body></body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(2*time.Second, 0, zap.NewNop())
	p, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "OG Title", p.Title)
	require.Equal(t, "A description", p.Description)
	require.Equal(t, "https://cdn.example.com/img.png", p.ImageURL)
}

func TestFetchFallsBackToTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Plain Title</title></head><body></body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(2*time.Second, 0, zap.NewNop())
	p, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "Plain Title", p.Title)
}

func TestFetchNoMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head></head><body>nothing</body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(2*time.Second, 0, zap.NewNop())
	p, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Nil(t, p)
}
