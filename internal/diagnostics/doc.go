// Package diagnostics checks the local machine before and around agent
// invocations.
//
//   - Preflight refuses to start an agent when free memory is below the
//     configured floor.
//   - CollectSystem gathers the host report printed by `crossreview doctor`.
//   - CheckAgent resolves an agent binary on PATH.
//
// All checks are best effort: a metric that cannot be read is reported as
// unknown rather than failing the caller.
package diagnostics
