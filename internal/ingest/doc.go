// Package ingest owns the periodic cycle that pulls feed pages, classifies
// new torrents, and refreshes the catalog and schedule. Timer ticks and state
// wake-ups funnel into the same cycle; every sub-task re-checks whether it is
// due, so a spurious wake is harmless.
package ingest
