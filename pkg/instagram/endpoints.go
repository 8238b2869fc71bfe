package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the endpoint pattern for user profiles
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// FollowersEndpoint is the endpoint pattern for follower lists
	FollowersEndpoint = "/api/v1/friendships/%s/followers/"

	// DefaultFollowerPageSize is the follower count requested per page
	DefaultFollowerPageSize = 50

	// MaxFollowerPageSize is the largest page Instagram will serve
	MaxFollowerPageSize = 200
)

// GetProfileURL constructs the URL for fetching a user's profile.
// base is the API base URL, normally BaseURL.
func GetProfileURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s%s?%s", base, ProfileEndpoint, params.Encode())
}

// GetFollowersURL constructs the URL for fetching one page of a user's
// followers. An empty maxID requests the first page.
func GetFollowersURL(base, userID, maxID string) string {
	return GetFollowersURLWithCount(base, userID, maxID, DefaultFollowerPageSize)
}

// GetFollowersURLWithCount constructs a followers page URL with a custom page size
func GetFollowersURLWithCount(base, userID, maxID string, count int) string {
	if count <= 0 {
		count = DefaultFollowerPageSize
	} else if count > MaxFollowerPageSize {
		count = MaxFollowerPageSize
	}

	params := url.Values{}
	params.Set("count", fmt.Sprintf("%d", count))
	if maxID != "" {
		params.Set("max_id", maxID)
	}

	return fmt.Sprintf("%s%s?%s", base, fmt.Sprintf(FollowersEndpoint, userID), params.Encode())
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername removes any invalid characters from a username
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	// Remove @ symbol if present at the beginning
	if username[0] == '@' {
		username = username[1:]
	}

	// Remove any trailing slashes or spaces
	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
