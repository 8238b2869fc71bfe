// Package instagram implements the boundary to Instagram's web API.
//
// The client exposes exactly the two operations the tracker needs: fetch
// a profile's follower/following counts, and enumerate a profile's
// follower list page by page. Requests are throttled through a token
// bucket and every failure is mapped to a closed set of error kinds
// (see the errors package) so callers never dispatch on transport
// details.
//
// Authentication is a single sessionid cookie, installed either directly
// from configuration or from a session file via the session package.
// Anonymous access works but is subject to much stricter upstream limits.
package instagram
