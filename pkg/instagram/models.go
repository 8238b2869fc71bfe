package instagram

// profileResponse mirrors the web_profile_info API payload
type profileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Status          string `json:"status"`
	Data            struct {
		User struct {
			ID             string `json:"id"`
			Username       string `json:"username"`
			FullName       string `json:"full_name"`
			IsPrivate      bool   `json:"is_private"`
			IsVerified     bool   `json:"is_verified"`
			EdgeFollowedBy struct {
				Count int `json:"count"`
			} `json:"edge_followed_by"`
			EdgeFollow struct {
				Count int `json:"count"`
			} `json:"edge_follow"`
		} `json:"user"`
	} `json:"data"`
}

// Profile holds the profile stats the tracker cares about
type Profile struct {
	ID         string
	Username   string
	FullName   string
	Followers  int
	Following  int
	IsPrivate  bool
	IsVerified bool
}

// FollowerRecord is one entry of a follower-list page
type FollowerRecord struct {
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
	IsPrivate     bool   `json:"is_private"`
	IsVerified    bool   `json:"is_verified"`
}

// FollowerPage is one page of a paginated follower list
type FollowerPage struct {
	Users     []FollowerRecord `json:"users"`
	NextMaxID string           `json:"next_max_id"`
	Status    string           `json:"status"`
}

// HasNextPage reports whether another page follows this one
func (p *FollowerPage) HasNextPage() bool {
	return p.NextMaxID != ""
}

// sessionExport is a JSON cookie export produced by browser extensions
// and session dump tools, loaded via the --session-file flag
type sessionExport struct {
	Username string            `json:"username"`
	Cookies  map[string]string `json:"cookies"`
}
