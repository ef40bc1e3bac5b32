// Package store persists shows, schedules, torrents, and control state in a
// single SQLite database. All multi-row updates run inside transactions so a
// crash mid-cycle leaves the database at the previous consistent point.
package store
