package store

import (
	"fmt"
	"time"
)

// Format classifies a show. We use the generic term "show" for all of these.
type Format int

const (
	FormatTV Format = iota + 1
	FormatTVShort
	FormatMovie
	FormatSpecial
	FormatOVA
	FormatONA
)

// ParseCatalogFormat parses the format string returned by the catalog API.
func ParseCatalogFormat(s string) (Format, error) {
	switch s {
	case "TV":
		return FormatTV, nil
	case "TV_SHORT":
		return FormatTVShort, nil
	case "MOVIE":
		return FormatMovie, nil
	case "SPECIAL":
		return FormatSpecial, nil
	case "OVA":
		return FormatOVA, nil
	case "ONA":
		return FormatONA, nil
	default:
		return 0, fmt.Errorf("invalid format %q", s)
	}
}

func (f Format) String() string {
	switch f {
	case FormatTV:
		return "TV Show"
	case FormatTVShort:
		return "TV Short"
	case FormatMovie:
		return "Movie"
	case FormatSpecial:
		return "Special"
	case FormatOVA:
		return "OVA"
	case FormatONA:
		return "ONA"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func (f Format) valid() bool {
	return f >= FormatTV && f <= FormatONA
}

// Season is the quarter of the year in which a show started airing.
type Season int

const (
	SeasonWinter Season = iota + 1
	SeasonSpring
	SeasonSummer
	SeasonFall
)

// ParseCatalogSeason parses the season string returned by the catalog API.
func ParseCatalogSeason(s string) (Season, error) {
	switch s {
	case "WINTER":
		return SeasonWinter, nil
	case "SPRING":
		return SeasonSpring, nil
	case "SUMMER":
		return SeasonSummer, nil
	case "FALL":
		return SeasonFall, nil
	default:
		return 0, fmt.Errorf("invalid season %q", s)
	}
}

func (s Season) String() string {
	switch s {
	case SeasonWinter:
		return "Winter"
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonFall:
		return "Fall"
	default:
		return fmt.Sprintf("Season(%d)", int(s))
	}
}

// YearSeason is the year and quarter a show aired, stored in the database as
// year*100+quarter (Spring 2020 = 202002).
type YearSeason struct {
	Year   int
	Season Season
}

// EncodeYearSeason returns the database encoding of ys.
func EncodeYearSeason(ys YearSeason) int {
	return ys.Year*100 + int(ys.Season)
}

// DecodeYearSeason parses the database encoding of a YearSeason.
func DecodeYearSeason(v int) (YearSeason, error) {
	year := v / 100
	season := Season(v % 100)
	if year < 1900 || year > 9999 {
		return YearSeason{}, fmt.Errorf("invalid year %d", year)
	}
	if season < SeasonWinter || season > SeasonFall {
		return YearSeason{}, fmt.Errorf("invalid season %d", int(season))
	}
	return YearSeason{Year: year, Season: season}, nil
}

// CurrentYearSeason returns the season at the time of the call.
func CurrentYearSeason(now time.Time) YearSeason {
	var season Season
	switch m := now.UTC().Month(); {
	case m <= time.March:
		season = SeasonWinter
	case m <= time.June:
		season = SeasonSpring
	case m <= time.September:
		season = SeasonSummer
	default:
		season = SeasonFall
	}
	return YearSeason{Year: now.UTC().Year(), Season: season}
}

func (ys YearSeason) String() string {
	return fmt.Sprintf("%s %d", ys.Season, ys.Year)
}

// NameKind distinguishes how a show name entered the catalog.
type NameKind int

const (
	// NamePrimary is the romaji title delivered by the catalog.
	NamePrimary NameKind = iota + 1
	// NameAlternate is the english title delivered by the catalog.
	NameAlternate
	// NameAdditional is a hand-entered curated alias. Aliases exist to fix
	// matching gaps and take priority during disambiguation.
	NameAdditional
)

func (k NameKind) String() string {
	switch k {
	case NamePrimary:
		return "primary"
	case NameAlternate:
		return "alternate"
	case NameAdditional:
		return "additional"
	default:
		return fmt.Sprintf("NameKind(%d)", int(k))
	}
}

// HashKind tags the algorithm of a torrent content hash.
type HashKind int

const (
	// HashSHA1 is the bittorrent v1 info hash.
	HashSHA1 HashKind = 1
)

// Show is one catalog entry.
type Show struct {
	ID        int64
	CatalogID int64
	Format    Format
	Season    *YearSeason
}

// ShowName is one name variant of a show. A show has at least one name
// before it participates in matching.
type ShowName struct {
	ID     int64
	ShowID int64
	Kind   NameKind
	Name   string
}

// ShowWithNames pairs a show with all of its name variants.
type ShowWithNames struct {
	Show  Show
	Names []ShowName
}

// ScheduleEntry is one (show, episode, air time) row.
type ScheduleEntry struct {
	ID      int64
	ShowID  int64
	Episode int
	AirsAt  time.Time
}

// Torrent is one tracker record. Immutable after creation except for the
// matched flag and the relation.
type Torrent struct {
	ID         int64
	FeedID     int64
	Hash       string
	HashKind   HashKind
	UploadedAt time.Time
	Title      string
	Size       int64
	Trusted    bool
	Matched    bool
}

// TorrentRecord is a feed record headed for persistence, optionally paired
// with the show the classifier assigned.
type TorrentRecord struct {
	FeedID     int64
	Hash       string
	HashKind   HashKind
	UploadedAt time.Time
	Title      string
	Size       int64
	Trusted    bool

	// ShowID is the classification result; nil means unmatched.
	ShowID *int64
}

// CatalogShow is the denormalized form of one catalog record as delivered by
// the refresher. Romaji is required; the catalog guarantees it.
type CatalogShow struct {
	CatalogID int64
	Format    Format
	Season    *YearSeason
	Romaji    string
	English   string
}
