package cdn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleURLSkipsProbingAndIsAlwaysPicked(t *testing.T) {
	p := New([]string{"https://cdn.example.invalid"}, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx) // should return immediately, never dialing anything

	require.Equal(t, "https://cdn.example.invalid", p.Pick())
}

func TestPickFallsBackWhenPoolEmpty(t *testing.T) {
	p := New([]string{"https://a.example.invalid", "https://b.example.invalid"}, "https://fallback.example.invalid")
	require.Equal(t, "https://fallback.example.invalid", p.Pick())
}

func TestProbeCycleMarksHealthyURLs(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer unhealthy.Close()

	var lastCount int
	p := New([]string{healthy.URL, unhealthy.URL}, "")
	p.OnHealthyCount = func(n int) { lastCount = n }
	p.probeAll(context.Background())

	require.Equal(t, 1, lastCount)
	require.Equal(t, healthy.URL, p.Pick())
}
