// Package httputil provides HTTP plumbing shared by registry clients.
//
// # Retry
//
// [Retry] re-runs an operation while it fails with a [RetryableError]:
//
//   - request timeouts and connection errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Registry lookups use [DefaultAttempts] tries in total with a [Linear]
// backoff of [DefaultStep]:
//
//	err := httputil.Retry(ctx, httputil.DefaultAttempts, httputil.Linear(httputil.DefaultStep), func(attempt int) error {
//	    return fetchOnce(ctx)
//	})
//
// Any other error stops the loop immediately.
//
// # Document cache
//
// [Cache] stores registry documents as JSON files under a directory with a
// TTL. The peer-graph builder keeps per-version peer requirements there, since
// a published version's manifest never changes. Writes are atomic
// ([WriteFileAtomic]).
package httputil
