package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	models "sectorview/database/models_pkg"
)

const sp500WikiURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// SP500Source scrapes the S&P 500 constituents table from Wikipedia
type SP500Source struct {
	client *resty.Client
}

func NewSP500Source(timeout time.Duration) *SP500Source {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "SectorView/1.0")
	return &SP500Source{client: client}
}

func (s *SP500Source) UniverseType() string {
	return models.UniversePrimary
}

func (s *SP500Source) Constituents(ctx context.Context) ([]Entry, error) {
	resp, err := s.client.R().SetContext(ctx).Get(sp500WikiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Wikipedia constituents page: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("Wikipedia returned status %d", resp.StatusCode())
	}
	return parseSP500HTML(strings.NewReader(resp.String()))
}

// parseSP500HTML extracts (symbol, name, GICS sector) rows from the
// first wikitable on the constituents page. Symbol and name cells link
// to their own articles, so prefer anchor text over cell text.
func parseSP500HTML(r *strings.Reader) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Wikipedia HTML: %w", err)
	}

	table := doc.Find("table.wikitable.sortable").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("constituents table not found on Wikipedia page")
	}

	var entries []Entry
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		symbol := cellText(cells.Eq(0))
		name := cellText(cells.Eq(1))
		sector := strings.TrimSpace(cells.Eq(2).Text())

		if symbol != "" && sector != "" {
			entries = append(entries, Entry{Symbol: symbol, Name: name, SectorName: sector})
		}
	})

	if len(entries) == 0 {
		return nil, fmt.Errorf("constituents table yielded no rows")
	}
	return entries, nil
}

// cellText returns the text of the cell's first link, or the cell's
// own text when no link is present.
func cellText(cell *goquery.Selection) string {
	if a := cell.Find("a").First(); a.Length() > 0 {
		return strings.TrimSpace(a.Text())
	}
	return strings.TrimSpace(cell.Text())
}
