package nyaa

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title    string `xml:"title"`
	GUID     string `xml:"guid"`
	PubDate  string `xml:"pubDate"`
	InfoHash string `xml:"infoHash"`
	Size     string `xml:"size"`
	Trusted  string `xml:"trusted"`
}

func parsePage(body []byte) ([]Record, error) {
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	records := make([]Record, 0, len(doc.Channel.Items))
	for i, item := range doc.Channel.Items {
		record, err := parseItem(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseItem(item rssItem) (Record, error) {
	feedID, err := parseFeedID(item.GUID)
	if err != nil {
		return Record{}, err
	}

	hash := strings.ToLower(strings.TrimSpace(item.InfoHash))
	if _, err := hex.DecodeString(hash); err != nil || len(hash) != 40 {
		return Record{}, fmt.Errorf("info hash %q is not 40 hex digits", item.InfoHash)
	}

	uploadedAt, err := parsePubDate(item.PubDate)
	if err != nil {
		return Record{}, err
	}

	size, err := ParseSize(item.Size)
	if err != nil {
		return Record{}, err
	}

	return Record{
		FeedID:     feedID,
		Hash:       hash,
		UploadedAt: uploadedAt,
		Title:      norm.NFC.String(item.Title),
		Size:       size,
		Trusted:    strings.EqualFold(strings.TrimSpace(item.Trusted), "yes"),
	}, nil
}

// parseFeedID extracts the numeric feed id from the item's permalink, e.g.
// https://nyaa.si/view/1837406.
func parseFeedID(guid string) (int64, error) {
	guid = strings.TrimSpace(guid)
	idx := strings.LastIndex(guid, "/view/")
	if idx < 0 {
		return 0, fmt.Errorf("guid %q has no /view/ segment", guid)
	}
	id, err := strconv.ParseInt(guid[idx+len("/view/"):], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("guid %q has no numeric id", guid)
	}
	return id, nil
}

func parsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable pubDate %q", s)
}

// ParseSize converts a human readable size like "516.4 MiB" to bytes. Both
// binary and decimal units are accepted; the fractional part is rounded.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	idx := strings.IndexByte(s, ' ')
	if idx < 0 {
		return 0, fmt.Errorf("size %q is missing a unit", s)
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(s[:idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("size %q has no numeric part", s)
	}

	var multiplier float64
	switch strings.ToLower(strings.TrimSpace(s[idx+1:])) {
	case "", "b":
		multiplier = 1
	case "ki", "kib":
		multiplier = 1 << 10
	case "mi", "mib":
		multiplier = 1 << 20
	case "gi", "gib":
		multiplier = 1 << 30
	case "ti", "tib":
		multiplier = 1 << 40
	case "k", "kb":
		multiplier = 1e3
	case "m", "mb":
		multiplier = 1e6
	case "g", "gb":
		multiplier = 1e9
	case "t", "tb":
		multiplier = 1e12
	default:
		return 0, fmt.Errorf("size %q has an invalid unit", s)
	}

	bytes := num * multiplier
	if bytes < 0 || bytes > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is out of bounds", s)
	}
	return int64(math.Round(bytes)), nil
}
