// Package lobby holds the relay's room registry: the process-wide mapping of
// room codes to rooms and the set of peer IDs issued over the process
// lifetime.
//
// The registry is an explicitly owned state object rather than package-level
// state so tests (and a future multi-tenant deployment) can instantiate
// isolated registries.
package lobby
