// Package daemon runs the ingestion manager as a long-lived process with
// single-instance enforcement.
package daemon
