package anilist

import (
	"context"
	"time"

	"tosho/internal/logging"
)

const scheduleQuery = `
query ($start: Int, $stop: Int, $page: Int) {
  Page(perPage: 50, page: $page) {
    pageInfo {
      hasNextPage
    }
    airingSchedules(airingAt_greater: $start, airingAt_lesser: $stop) {
      airingAt
      episode
      mediaId
    }
  }
}`

// Airing is one upcoming episode as reported by the catalog.
type Airing struct {
	CatalogID int64
	Episode   int
	AiringAt  time.Time
}

type scheduleData struct {
	Page struct {
		PageInfo        pageInfo `json:"pageInfo"`
		AiringSchedules []struct {
			AiringAt int64 `json:"airingAt"`
			Episode  int   `json:"episode"`
			MediaID  int64 `json:"mediaId"`
		} `json:"airingSchedules"`
	} `json:"Page"`
}

// Schedule fetches every airing in [start, stop).
func (c *Client) Schedule(ctx context.Context, start, stop time.Time) ([]Airing, error) {
	var airings []Airing
	for page := 1; ; page++ {
		c.logger.Info("loading schedule page", logging.Int(logging.FieldPage, page))

		var data scheduleData
		variables := map[string]any{
			"start": start.Unix(),
			"stop":  stop.Unix(),
			"page":  page,
		}
		if err := c.query(ctx, scheduleQuery, variables, &data); err != nil {
			return nil, err
		}

		for _, entry := range data.Page.AiringSchedules {
			airings = append(airings, Airing{
				CatalogID: entry.MediaID,
				Episode:   entry.Episode,
				AiringAt:  time.Unix(entry.AiringAt, 0).UTC(),
			})
		}

		if !data.Page.PageInfo.HasNextPage {
			return airings, nil
		}
	}
}
