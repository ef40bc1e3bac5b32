// Package nyaa fetches torrent records from a nyaa-style tracker RSS feed.
package nyaa
