package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	models "sectorview/database/models_pkg"
)

const iwmHoldingsURL = "https://www.ishares.com/us/products/239710/ISHARES-RUSSELL-2000-ETF/1467271812596.ajax?fileType=csv&fileName=IWM_holdings&dataType=fund"

// RussellSource reads Russell 2000 constituents from the iShares IWM
// holdings CSV. The file carries no sector data, so entries come back
// with an empty SectorName and get classified later from quote data.
type RussellSource struct {
	client *resty.Client
}

func NewRussellSource(timeout time.Duration) *RussellSource {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "SectorView/1.0")
	return &RussellSource{client: client}
}

func (s *RussellSource) UniverseType() string {
	return models.UniverseSecondary
}

func (s *RussellSource) Constituents(ctx context.Context) ([]Entry, error) {
	resp, err := s.client.R().SetContext(ctx).Get(iwmHoldingsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch IWM holdings: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("iShares returned status %d", resp.StatusCode())
	}

	entries := parseIWMCSV(resp.String())
	if len(entries) == 0 {
		return nil, fmt.Errorf("IWM holdings CSV yielded no equity rows")
	}
	return entries, nil
}

// parseIWMCSV extracts equity holdings from the IWM CSV. The file
// opens with metadata rows; the real header is found by looking for a
// line containing both "Ticker" and "Asset Class". Cash positions and
// placeholder "-" tickers are skipped.
func parseIWMCSV(csv string) []Entry {
	tickerCol, nameCol, assetClassCol := -1, -1, -1
	var entries []Entry

	for _, line := range strings.Split(csv, "\n") {
		if tickerCol < 0 {
			lower := strings.ToLower(line)
			if strings.Contains(lower, "ticker") && strings.Contains(lower, "asset class") {
				for i, col := range splitCSVLine(line) {
					switch strings.ToLower(strings.TrimSpace(col)) {
					case "ticker":
						tickerCol = i
					case "name":
						nameCol = i
					case "asset class":
						assetClassCol = i
					}
				}
			}
			continue
		}

		cols := splitCSVLine(line)
		if len(cols) <= max(tickerCol, max(nameCol, assetClassCol)) {
			continue
		}
		if assetClassCol >= 0 && !strings.EqualFold(strings.TrimSpace(cols[assetClassCol]), "Equity") {
			continue
		}

		ticker := strings.TrimSpace(cols[tickerCol])
		if ticker == "" || ticker == "-" {
			continue
		}
		name := ticker
		if nameCol >= 0 {
			if n := strings.TrimSpace(cols[nameCol]); n != "" {
				name = n
			}
		}
		entries = append(entries, Entry{Symbol: ticker, Name: name})
	}

	return entries
}

// splitCSVLine splits one CSV line, respecting double-quoted fields.
// Holdings names routinely contain commas ("XYZ CORP, INC").
func splitCSVLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	fields = append(fields, current.String())
	return fields
}
