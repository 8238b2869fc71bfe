package instagram

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"igtracker/pkg/errors"
	"igtracker/pkg/logger"
	"igtracker/pkg/ratelimit"
)

// Client is the boundary to Instagram's web API. All errors it returns
// are classified *errors.Error values.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a new Instagram API client
func NewClient(timeout time.Duration, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"X-IG-App-ID":     "936619743392459",
		},
		baseURL: BaseURL,
		limiter: limiter,
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetBaseURL overrides the API base URL, used by tests
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// SetSessionID installs a session token as the transport credential
func (c *Client) SetSessionID(sessionID string) {
	c.headers["Cookie"] = fmt.Sprintf("sessionid=%s", sessionID)
}

// HasSession reports whether a session credential is installed
func (c *Client) HasSession() bool {
	return c.headers["Cookie"] != ""
}

// LoadSessionExport reads a session file in the client's native serialized
// format (a JSON cookie export) and installs its sessionid cookie.
func (c *Client) LoadSessionExport(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var export sessionExport
	if err := json.Unmarshal(data, &export); err != nil {
		return fmt.Errorf("failed to parse session export: %w", err)
	}

	sessionID := export.Cookies["sessionid"]
	if sessionID == "" {
		return fmt.Errorf("session export has no sessionid cookie")
	}

	c.SetSessionID(sessionID)
	return nil
}

// doRequest performs an HTTP request with the configured headers,
// draining a rate limit token first.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		c.limiter.Wait()
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.New(errors.KindConnectionFailed, fmt.Sprintf("network error: %v", err), 0)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(url string, target interface{}) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return errors.New(errors.KindUnknown, fmt.Sprintf("failed to create request: %v", err), 0)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.KindConnectionFailed, fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.New(errors.KindUnknown, fmt.Sprintf("failed to parse JSON: %v", err), resp.StatusCode)
	}

	return nil
}

// checkResponseStatus maps HTTP response status to classified errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	kind := errors.KindFromStatusCode(resp.StatusCode)
	switch kind {
	case errors.KindNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(kind, "resource not found", resp.StatusCode)
	case errors.KindRateLimited:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(kind, "rate limit exceeded", resp.StatusCode)
	case errors.KindConnectionFailed:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(kind, "server error", resp.StatusCode)
	default:
		c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(kind, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), resp.StatusCode)
	}
}

// FetchProfile fetches follower/following counts for a username. The
// username is sanitized and validated before any request goes out, so
// garbage input cannot smuggle extra query parameters upstream.
func (c *Client) FetchProfile(username string) (*Profile, error) {
	username = SanitizeUsername(username)
	if !IsValidUsername(username) {
		return nil, errors.New(errors.KindNotFound, fmt.Sprintf("invalid username %q", username), 0)
	}

	url := GetProfileURL(c.baseURL, username)

	c.logger.DebugWithFields("fetching user profile", map[string]interface{}{
		"username": username,
	})

	var response profileResponse
	if err := c.GetJSON(url, &response); err != nil {
		return nil, err
	}

	if response.RequiresToLogin {
		c.logger.WarnWithFields("profile requires authentication", map[string]interface{}{
			"username": username,
		})
		return nil, errors.New(errors.KindRateLimited, "Instagram requires authentication to view this profile", http.StatusUnauthorized)
	}

	user := response.Data.User
	if user.ID == "" {
		return nil, errors.New(errors.KindNotFound, fmt.Sprintf("profile %q does not exist", username), http.StatusNotFound)
	}

	return &Profile{
		ID:         user.ID,
		Username:   user.Username,
		FullName:   user.FullName,
		Followers:  user.EdgeFollowedBy.Count,
		Following:  user.EdgeFollow.Count,
		IsPrivate:  user.IsPrivate,
		IsVerified: user.IsVerified,
	}, nil
}

// FetchFollowers fetches one page of a user's follower list.
// An empty after cursor requests the first page.
func (c *Client) FetchFollowers(userID string, after string) (*FollowerPage, error) {
	url := GetFollowersURL(c.baseURL, userID, after)

	c.logger.DebugWithFields("fetching followers page", map[string]interface{}{
		"user_id": userID,
		"after":   after,
	})

	var page FollowerPage
	if err := c.GetJSON(url, &page); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("followers page fetched", map[string]interface{}{
		"user_id":  userID,
		"count":    len(page.Users),
		"has_next": page.HasNextPage(),
	})

	return &page, nil
}
