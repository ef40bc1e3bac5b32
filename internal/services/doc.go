// Package services defines shared utilities consumed by the external
// integrations and the ingestion manager.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that classify failures
//     into retryable and non-retryable outcomes.
//   - Context helpers that stamp cycle identifiers for logging and tracing.
package services
