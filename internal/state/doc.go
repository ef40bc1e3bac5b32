// Package state layers change notification over the persistent control keys.
// Writes and periodic observation both feed the same transition policy, so a
// key edited by another process is picked up on the next tick rather than
// lost.
package state
