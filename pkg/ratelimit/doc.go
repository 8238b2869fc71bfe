// Package ratelimit provides the request throttle used by the Instagram
// client. Instagram's abuse detection is sensitive to request frequency,
// so the client drains a token before every upstream call and blocks when
// the bucket is empty.
//
// Example:
//
//	limiter := ratelimit.NewTokenBucket(6, time.Minute)
//	limiter.Wait() // blocks until a request slot is available
//
// The inter-account pacing of the sweep itself is handled separately by
// the backoff package; this limiter only bounds raw request frequency.
package ratelimit
