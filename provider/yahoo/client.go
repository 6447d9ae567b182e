// Package yahoo implements the provider fetch contract against the
// Yahoo Finance chart (v8) and quoteSummary (v10) APIs. The chart API
// is open; quoteSummary requires a cookie-jar session plus a crumb
// token fetched once per client and reused across calls.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"sectorview/database/types"
	"sectorview/provider"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// chartResponse mirrors the chart API payload (price data)
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

type chartMeta struct {
	RegularMarketPrice  *float64 `json:"regularMarketPrice"`
	ChartPreviousClose  *float64 `json:"chartPreviousClose"`
	RegularMarketVolume *int64   `json:"regularMarketVolume"`
}

// quoteSummaryResponse mirrors the quoteSummary payload (fundamentals).
// Yahoo wraps most numbers in {"raw": 123.45, "fmt": "123.45"}.
type quoteSummaryResponse struct {
	QuoteSummary *struct {
		Result []quoteSummaryData `json:"result"`
	} `json:"quoteSummary"`
}

type quoteSummaryData struct {
	DefaultKeyStatistics *struct {
		Beta        *yahooValue `json:"beta"`
		TrailingEPS *yahooValue `json:"trailingEps"`
		PriceToBook *yahooValue `json:"priceToBook"`
	} `json:"defaultKeyStatistics"`
	SummaryDetail *struct {
		TrailingPE          *yahooValue `json:"trailingPE"`
		DividendYield       *yahooValue `json:"dividendYield"`
		FiftyTwoWeekHigh    *yahooValue `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow     *yahooValue `json:"fiftyTwoWeekLow"`
		AverageVolume10days *yahooValue `json:"averageVolume10days"`
		MarketCap           *yahooValue `json:"marketCap"`
	} `json:"summaryDetail"`
	Price *struct {
		MarketCap *yahooValue `json:"marketCap"`
	} `json:"price"`
	AssetProfile *struct {
		Sector *string `json:"sector"`
	} `json:"assetProfile"`
}

type yahooValue struct {
	Raw *float64 `json:"raw"`
}

func (v *yahooValue) raw() *float64 {
	if v == nil {
		return nil
	}
	return v.Raw
}

func chartURL(symbol string) string {
	return fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?range=1d&interval=1d", symbol)
}

func fundamentalsURL(symbol, crumb string) string {
	return fmt.Sprintf(
		"https://query2.finance.yahoo.com/v10/finance/quoteSummary/%s?modules=defaultKeyStatistics,summaryDetail,price,assetProfile&crumb=%s",
		symbol, crumb)
}

// priceChange derives absolute and percent change from price and
// previous close, guarding a zero previous close.
func priceChange(price, prevClose float64) (float64, float64) {
	change := price - prevClose
	if prevClose == 0 {
		return change, 0
	}
	return change, change / prevClose * 100
}

// Client fetches snapshots from Yahoo Finance. Create one per refresh
// cycle via NewClient so the crumb stays fresh; Fetch is safe for
// concurrent use.
type Client struct {
	http  *resty.Client
	crumb string
}

// NewClient establishes a Yahoo session: cookie jar first, then the
// crumb the quoteSummary API demands.
func NewClient(timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cookie jar: %w", err)
	}

	client := resty.New().
		SetCookieJar(jar).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	// Step 1: hit fc.yahoo.com to collect session cookies. The
	// endpoint responds with an error page; only the cookies matter.
	if _, err := client.R().Get("https://fc.yahoo.com"); err != nil {
		return nil, fmt.Errorf("failed to init Yahoo session: %w", err)
	}

	// Step 2: fetch the crumb bound to those cookies
	resp, err := client.R().Get("https://query2.finance.yahoo.com/v1/test/getcrumb")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(resp.String())
	if crumb == "" || strings.Contains(crumb, "Unauthorized") || strings.Contains(crumb, "Too Many") {
		return nil, fmt.Errorf("Yahoo crumb fetch rejected: %q", crumb)
	}

	return &Client{http: client, crumb: crumb}, nil
}

// Fetch implements provider.Fetcher: chart data is mandatory,
// fundamentals degrade to nil on any failure.
func (c *Client) Fetch(ctx context.Context, symbol string) (*types.Snapshot, error) {
	price, prevClose, volume, err := c.fetchChart(ctx, symbol)
	if err != nil {
		return nil, err
	}

	change, changePct := priceChange(price, prevClose)
	snap := &types.Snapshot{
		Price:              price,
		PriceChange:        change,
		PriceChangePercent: changePct,
		Volume:             volume,
	}

	c.fetchFundamentals(ctx, symbol, snap)
	return snap, nil
}

// fetchChart returns price, previous close, and volume for a symbol
func (c *Client) fetchChart(ctx context.Context, symbol string) (float64, float64, *int64, error) {
	resp, err := c.http.R().SetContext(ctx).Get(chartURL(symbol))
	if err != nil {
		return 0, 0, nil, provider.NewError(provider.KindNetworkError, symbol, err)
	}
	if kind, bad := classifyStatus(resp.StatusCode()); bad {
		return 0, 0, nil, provider.NewError(kind, symbol, fmt.Errorf("chart API returned %d", resp.StatusCode()))
	}

	var data chartResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return 0, 0, nil, provider.NewError(provider.KindParseError, symbol, err)
	}
	if len(data.Chart.Result) == 0 {
		return 0, 0, nil, provider.NewError(provider.KindNotFound, symbol, fmt.Errorf("no chart data"))
	}

	meta := data.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return 0, 0, nil, provider.NewError(provider.KindParseError, symbol, fmt.Errorf("no market price"))
	}
	price := *meta.RegularMarketPrice
	prevClose := price
	if meta.ChartPreviousClose != nil {
		prevClose = *meta.ChartPreviousClose
	}
	return price, prevClose, meta.RegularMarketVolume, nil
}

// fetchFundamentals fills nullable metrics in place. Failures leave
// them nil — a price-only snapshot is still usable.
func (c *Client) fetchFundamentals(ctx context.Context, symbol string, snap *types.Snapshot) {
	resp, err := c.http.R().SetContext(ctx).Get(fundamentalsURL(symbol, c.crumb))
	if err != nil || resp.StatusCode() != http.StatusOK {
		return
	}

	var data quoteSummaryResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return
	}
	if data.QuoteSummary == nil || len(data.QuoteSummary.Result) == 0 {
		return
	}
	applyFundamentals(&data.QuoteSummary.Result[0], snap)
}

// applyFundamentals copies the nullable quoteSummary metrics onto the
// snapshot. Market cap prefers summaryDetail with the price module as
// fallback.
func applyFundamentals(r *quoteSummaryData, snap *types.Snapshot) {
	if ks := r.DefaultKeyStatistics; ks != nil {
		snap.Beta = ks.Beta.raw()
		snap.EPS = ks.TrailingEPS.raw()
		snap.PBRatio = ks.PriceToBook.raw()
	}
	if sd := r.SummaryDetail; sd != nil {
		snap.PERatio = sd.TrailingPE.raw()
		snap.DividendYield = sd.DividendYield.raw()
		snap.Week52High = sd.FiftyTwoWeekHigh.raw()
		snap.Week52Low = sd.FiftyTwoWeekLow.raw()
		snap.AvgVolume10d = floatToInt64(sd.AverageVolume10days.raw())
		snap.MarketCap = floatToInt64(sd.MarketCap.raw())
	}
	if snap.MarketCap == nil && r.Price != nil {
		snap.MarketCap = floatToInt64(r.Price.MarketCap.raw())
	}
	if ap := r.AssetProfile; ap != nil && ap.Sector != nil {
		snap.SectorName = *ap.Sector
	}
}

// classifyStatus maps HTTP failures onto the fetch error taxonomy
func classifyStatus(status int) (provider.ErrorKind, bool) {
	switch {
	case status == http.StatusOK:
		return 0, false
	case status == http.StatusTooManyRequests:
		return provider.KindRateLimited, true
	case status == http.StatusNotFound:
		return provider.KindNotFound, true
	default:
		return provider.KindNetworkError, true
	}
}

func floatToInt64(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
