// Package artifact caches finished generation products keyed by the
// deterministic fingerprint of their inputs. Concurrent writers for the
// same fingerprint are resolved atomically in the database: one wins, the
// rest are handed the canonical stored artifact.
package artifact
