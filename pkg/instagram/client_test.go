package instagram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igtracker/pkg/errors"
)

func newTestServer(t *testing.T, handler http.Handler) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(5*time.Second, nil, nil)
	client.SetBaseURL(server.URL)
	return server, client
}

func profileHandler(followers, following int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp profileResponse
		resp.Status = "ok"
		resp.Data.User.ID = "123456"
		resp.Data.User.Username = r.URL.Query().Get("username")
		resp.Data.User.EdgeFollowedBy.Count = followers
		resp.Data.User.EdgeFollow.Count = following
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestFetchProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(ProfileEndpoint, profileHandler(1500, 42))
	_, client := newTestServer(t, mux)

	profile, err := client.FetchProfile("alice")
	require.NoError(t, err)

	assert.Equal(t, "123456", profile.ID)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, 1500, profile.Followers)
	assert.Equal(t, 42, profile.Following)
}

func TestFetchProfileNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(ProfileEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, client := newTestServer(t, mux)

	_, err := client.FetchProfile("ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestFetchProfileMissingUser(t *testing.T) {
	// 200 response whose user object is empty also means not found
	mux := http.NewServeMux()
	mux.HandleFunc(ProfileEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","data":{"user":{}}}`)
	})
	_, client := newTestServer(t, mux)

	_, err := client.FetchProfile("ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestFetchProfileStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   errors.Kind
	}{
		{http.StatusTooManyRequests, errors.KindRateLimited},
		{http.StatusInternalServerError, errors.KindConnectionFailed},
		{http.StatusBadGateway, errors.KindConnectionFailed},
		{http.StatusForbidden, errors.KindUnknown},
	}

	for _, c := range cases {
		mux := http.NewServeMux()
		status := c.status
		mux.HandleFunc(ProfileEndpoint, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, client := newTestServer(t, mux)

		_, err := client.FetchProfile("alice")
		require.Error(t, err)
		assert.Equal(t, c.want, errors.Classify(err), "status %d", c.status)
	}
}

func TestFetchFollowersPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/friendships/123456/followers/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("max_id") == "" {
			fmt.Fprint(w, `{"users":[{"username":"fan1","full_name":"Fan One","is_verified":true}],"next_max_id":"cursor1","status":"ok"}`)
		} else {
			fmt.Fprint(w, `{"users":[{"username":"fan2","is_private":true}],"next_max_id":"","status":"ok"}`)
		}
	})
	_, client := newTestServer(t, mux)

	page, err := client.FetchFollowers("123456", "")
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "fan1", page.Users[0].Username)
	assert.True(t, page.Users[0].IsVerified)
	assert.True(t, page.HasNextPage())

	page, err = client.FetchFollowers("123456", page.NextMaxID)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "fan2", page.Users[0].Username)
	assert.False(t, page.HasNextPage())
}

func TestSessionCookie(t *testing.T) {
	var gotCookie string
	mux := http.NewServeMux()
	mux.HandleFunc(ProfileEndpoint, func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		profileHandler(1, 1)(w, r)
	})
	_, client := newTestServer(t, mux)

	assert.False(t, client.HasSession())
	client.SetSessionID("abc123")
	assert.True(t, client.HasSession())

	_, err := client.FetchProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "sessionid=abc123", gotCookie)
}

func TestLoadSessionExport(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "instagram.session")

	content := `{"username":"tracker","cookies":{"sessionid":"exported-token","csrftoken":"x"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	client := NewClient(time.Second, nil, nil)
	require.NoError(t, client.LoadSessionExport(path))
	assert.True(t, client.HasSession())

	// Export without a sessionid cookie is rejected
	require.NoError(t, os.WriteFile(path, []byte(`{"cookies":{}}`), 0600))
	assert.Error(t, client.LoadSessionExport(path))

	// Non-JSON content is rejected
	require.NoError(t, os.WriteFile(path, []byte("raw-token"), 0600))
	assert.Error(t, client.LoadSessionExport(path))
}

func TestFetchProfileRejectsMalformedUsername(t *testing.T) {
	requests := 0
	mux := http.NewServeMux()
	mux.HandleFunc(ProfileEndpoint, func(w http.ResponseWriter, r *http.Request) {
		requests++
		profileHandler(1, 1)(w, r)
	})
	_, client := newTestServer(t, mux)

	// A username carrying query syntax must never reach the wire, where
	// it would smuggle extra parameters into the request
	_, err := client.FetchProfile("alice&count=999")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 0, requests, "no request should be sent for an invalid username")
}

func TestFetchProfileSanitizesUsername(t *testing.T) {
	var gotUsername string
	mux := http.NewServeMux()
	mux.HandleFunc(ProfileEndpoint, func(w http.ResponseWriter, r *http.Request) {
		gotUsername = r.URL.Query().Get("username")
		profileHandler(1, 1)(w, r)
	})
	_, client := newTestServer(t, mux)

	_, err := client.FetchProfile("@alice/ ")
	require.NoError(t, err)
	assert.Equal(t, "alice", gotUsername)
}

func TestURLBuilders(t *testing.T) {
	base := "http://example.test"

	assert.Equal(t, base+"/api/v1/users/web_profile_info/?username=alice",
		GetProfileURL(base, "alice"))

	assert.Equal(t, base+"/api/v1/friendships/123/followers/?count=50",
		GetFollowersURL(base, "123", ""))

	withCursor := GetFollowersURL(base, "123", "cursor1")
	assert.Contains(t, withCursor, "max_id=cursor1")

	// Page size is clamped to what Instagram will serve
	clamped := GetFollowersURLWithCount(base, "123", "", 10000)
	assert.Contains(t, clamped, fmt.Sprintf("count=%d", MaxFollowerPageSize))
}

func TestIsValidUsername(t *testing.T) {
	valid := []string{"alice", "bob_123", "a.b.c", "UserName"}
	for _, u := range valid {
		assert.True(t, IsValidUsername(u), u)
	}

	invalid := []string{"", "has space", "has-dash", "way.too.long.username.over.thirty.chars"}
	for _, u := range invalid {
		assert.False(t, IsValidUsername(u), u)
	}
}
