package ctfd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCTFdServer(t *testing.T, wantKey string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/scoreboard", func(w http.ResponseWriter, r *http.Request) {
		if wantKey != "" && r.Header.Get("Authorization") != "Token "+wantKey {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"forbidden"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"pos":1,"account_id":7,"name":"K17","score":12345},
			{"pos":2,"account_id":8,"name":"Other","score":900}
		]}`))
	})
	mux.HandleFunc("/api/v1/challenges", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"id":1,"name":"baby-web","category":"web","value":100,"solves":10,"solved_by_me":true},
			{"id":2,"name":"heap-heaven","category":"pwn","value":500,"solves":1,"solved_by_me":false}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ctf.example.com", want: "https://ctf.example.com"},
		{in: "https://ctf.example.com/", want: "https://ctf.example.com"},
		{in: "http://localhost:8000", want: "http://localhost:8000"},
		{in: "  ctf.example.com/  ", want: "https://ctf.example.com"},
		{in: "", wantErr: true},
		{in: "ftp://ctf.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDomain(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetch(t *testing.T) {
	srv := newCTFdServer(t, "secret")
	c := NewClient(5*time.Second, WithHTTPClient(srv.Client()))

	snap, err := c.Fetch(context.Background(), srv.URL, "secret")
	require.NoError(t, err)
	require.Len(t, snap.Standings, 2)
	assert.Equal(t, "K17", snap.Standings[0].Name)
	assert.Equal(t, int64(12345), snap.Standings[0].Score)
	require.Len(t, snap.Challenges, 2)
	assert.True(t, snap.Challenges[0].SolvedByMe)
}

func TestFetchWrongKey(t *testing.T) {
	srv := newCTFdServer(t, "secret")
	c := NewClient(5*time.Second, WithHTTPClient(srv.Client()))

	_, err := c.Fetch(context.Background(), srv.URL, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"scoreboard hidden"}`))
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).Fetch(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoreboard hidden")
}
