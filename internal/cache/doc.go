// Package cache memoizes lookup outcomes in a shared key-value store.
//
// Engine decorates a lookup.Engine: results and not-found outcomes are stored
// under "package_id:<id>" for a fixed TTL, and concurrent cold lookups of the
// same ID are collapsed into a single upstream call. Upstream and malformed
// errors are never stored. A failing store degrades to uncached lookups.
//
// Store drivers live in the memory, redisstore and valkeystore subpackages.
package cache
