package anilist

import (
	"context"

	"golang.org/x/text/unicode/norm"

	"tosho/internal/logging"
	"tosho/internal/store"
)

const showsQuery = `
query ($page: Int) {
  Page(perPage: 50, page: $page) {
    pageInfo {
      hasNextPage
    }
    media(sort: ID, format_in: [TV, TV_SHORT, MOVIE, SPECIAL, OVA, ONA]) {
      id
      title {
        romaji
        english
      }
      seasonYear
      season
      format
    }
  }
}`

type showsData struct {
	Page struct {
		PageInfo pageInfo `json:"pageInfo"`
		Media    []struct {
			ID    int64 `json:"id"`
			Title struct {
				Romaji  string  `json:"romaji"`
				English *string `json:"english"`
			} `json:"title"`
			SeasonYear *int    `json:"seasonYear"`
			Season     *string `json:"season"`
			Format     string  `json:"format"`
		} `json:"media"`
	} `json:"Page"`
}

// Shows streams every catalog show, page by page in id order, to fn. Records
// with an unparseable format or season are logged and skipped rather than
// failing the whole sync; the upstream database occasionally carries both.
func (c *Client) Shows(ctx context.Context, fn func(store.CatalogShow) error) error {
	for page := 1; ; page++ {
		c.logger.Info("loading catalog shows page", logging.Int(logging.FieldPage, page))

		var data showsData
		if err := c.query(ctx, showsQuery, map[string]any{"page": page}, &data); err != nil {
			return err
		}

		for _, media := range data.Page.Media {
			format, err := store.ParseCatalogFormat(media.Format)
			if err != nil {
				c.logger.Warn("skipping show with unknown format",
					logging.Int64(logging.FieldShowID, media.ID),
					logging.Error(err))
				continue
			}
			if media.Title.Romaji == "" {
				c.logger.Warn("skipping show without romaji title",
					logging.Int64(logging.FieldShowID, media.ID))
				continue
			}

			show := store.CatalogShow{
				CatalogID: media.ID,
				Format:    format,
				Romaji:    norm.NFC.String(media.Title.Romaji),
			}
			if media.Title.English != nil {
				show.English = norm.NFC.String(*media.Title.English)
			}
			if media.SeasonYear != nil && media.Season != nil {
				season, err := store.ParseCatalogSeason(*media.Season)
				if err != nil {
					c.logger.Warn("skipping season of show",
						logging.Int64(logging.FieldShowID, media.ID),
						logging.Error(err))
				} else {
					show.Season = &store.YearSeason{Year: *media.SeasonYear, Season: season}
				}
			}

			if err := fn(show); err != nil {
				return err
			}
		}

		if !data.Page.PageInfo.HasNextPage {
			return nil
		}
	}
}
