// Package integrations provides the shared HTTP layer for package registry
// clients.
//
// # Overview
//
// Registry-specific clients live in subpackages:
//
//   - [npm]: the npm registry and any npm-compatible registry configured
//     through .npmrc
//
// # Client Pattern
//
// [Client] wraps an [http.Client] with default headers, an optional
// [httputil.Cache] for immutable documents, and a retry policy:
//
//	c := integrations.NewClient(cache, map[string]string{"Accept": "application/json"})
//	err := c.Fetch(ctx, url, nil, 5*time.Second, &doc)
//
// [Client.Fetch] gives every attempt its own timeout and retries 429, 5xx,
// network failures and timeouts, 3 attempts in total with a linear 120ms
// backoff by default. A 404 surfaces as [ErrNotFound]; 401 and 403 surface as
// UNAUTHORIZED and FORBIDDEN wrapped in a REGISTRY_FAILURE, so callers can
// test either code with [errors.Is].
//
// Every request reports to [observability.HTTP].
//
// [npm]: github.com/matzehuels/peerguard/pkg/integrations/npm
// [errors.Is]: github.com/matzehuels/peerguard/pkg/errors.Is
// [observability.HTTP]: github.com/matzehuels/peerguard/pkg/observability.HTTP
package integrations
