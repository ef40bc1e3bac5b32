// Package anilist talks to an AniList-style GraphQL catalog. Requests are
// serialized and spaced out; the API's rate limit budget is shared with
// everyone else using the public endpoint.
package anilist
