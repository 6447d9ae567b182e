package yahoo

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"sectorview/database/types"
	"sectorview/provider"
)

func TestChartURL(t *testing.T) {
	got := chartURL("AAPL")
	want := "https://query1.finance.yahoo.com/v8/finance/chart/AAPL?range=1d&interval=1d"
	if got != want {
		t.Errorf("chartURL = %s, want %s", got, want)
	}
}

func TestFundamentalsURL(t *testing.T) {
	got := fundamentalsURL("MSFT", "abc123")
	if !strings.Contains(got, "/v10/finance/quoteSummary/MSFT") {
		t.Errorf("fundamentalsURL missing symbol path: %s", got)
	}
	if !strings.Contains(got, "crumb=abc123") {
		t.Errorf("fundamentalsURL missing crumb: %s", got)
	}
	for _, mod := range []string{"defaultKeyStatistics", "summaryDetail", "price", "assetProfile"} {
		if !strings.Contains(got, mod) {
			t.Errorf("fundamentalsURL missing module %s: %s", mod, got)
		}
	}
}

func TestPriceChange(t *testing.T) {
	tests := []struct {
		name          string
		price         float64
		prevClose     float64
		wantChange    float64
		wantChangePct float64
	}{
		{"gain", 110.0, 100.0, 10.0, 10.0},
		{"loss", 90.0, 100.0, -10.0, -10.0},
		{"flat", 100.0, 100.0, 0.0, 0.0},
		{"zero previous close", 50.0, 0.0, 50.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, pct := priceChange(tt.price, tt.prevClose)
			if change != tt.wantChange {
				t.Errorf("change = %v, want %v", change, tt.wantChange)
			}
			if pct != tt.wantChangePct {
				t.Errorf("changePct = %v, want %v", pct, tt.wantChangePct)
			}
		})
	}
}

func TestChartResponseParsing(t *testing.T) {
	body := `{
		"chart": {
			"result": [{
				"meta": {
					"regularMarketPrice": 185.5,
					"chartPreviousClose": 180.0,
					"regularMarketVolume": 52000000
				}
			}]
		}
	}`

	var data chartResponse
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	meta := data.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil || *meta.RegularMarketPrice != 185.5 {
		t.Errorf("price = %v, want 185.5", meta.RegularMarketPrice)
	}
	if meta.ChartPreviousClose == nil || *meta.ChartPreviousClose != 180.0 {
		t.Errorf("prevClose = %v, want 180.0", meta.ChartPreviousClose)
	}
	if meta.RegularMarketVolume == nil || *meta.RegularMarketVolume != 52000000 {
		t.Errorf("volume = %v, want 52000000", meta.RegularMarketVolume)
	}
}

func TestChartResponseEmptyResult(t *testing.T) {
	var data chartResponse
	if err := json.Unmarshal([]byte(`{"chart":{"result":[]}}`), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(data.Chart.Result) != 0 {
		t.Errorf("expected empty result, got %d entries", len(data.Chart.Result))
	}
}

func TestQuoteSummaryParsing(t *testing.T) {
	body := `{
		"quoteSummary": {
			"result": [{
				"defaultKeyStatistics": {
					"beta": {"raw": 1.25},
					"trailingEps": {"raw": 6.42},
					"priceToBook": {"raw": 45.1}
				},
				"summaryDetail": {
					"trailingPE": {"raw": 28.9},
					"dividendYield": {"raw": 0.0051},
					"fiftyTwoWeekHigh": {"raw": 199.62},
					"fiftyTwoWeekLow": {"raw": 164.08},
					"averageVolume10days": {"raw": 48000000},
					"marketCap": {"raw": 2890000000000}
				},
				"assetProfile": {"sector": "Technology"}
			}]
		}
	}`

	var data quoteSummaryResponse
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	snap := &types.Snapshot{}
	applyFundamentals(&data.QuoteSummary.Result[0], snap)

	if snap.Beta == nil || *snap.Beta != 1.25 {
		t.Errorf("Beta = %v, want 1.25", snap.Beta)
	}
	if snap.EPS == nil || *snap.EPS != 6.42 {
		t.Errorf("EPS = %v, want 6.42", snap.EPS)
	}
	if snap.PBRatio == nil || *snap.PBRatio != 45.1 {
		t.Errorf("PBRatio = %v, want 45.1", snap.PBRatio)
	}
	if snap.PERatio == nil || *snap.PERatio != 28.9 {
		t.Errorf("PERatio = %v, want 28.9", snap.PERatio)
	}
	if snap.AvgVolume10d == nil || *snap.AvgVolume10d != 48000000 {
		t.Errorf("AvgVolume10d = %v, want 48000000", snap.AvgVolume10d)
	}
	if snap.MarketCap == nil || *snap.MarketCap != 2890000000000 {
		t.Errorf("MarketCap = %v, want 2890000000000", snap.MarketCap)
	}
	if snap.SectorName != "Technology" {
		t.Errorf("SectorName = %q, want Technology", snap.SectorName)
	}
}

func TestQuoteSummaryNullRawValues(t *testing.T) {
	// Yahoo sends {} or {"raw": null} for metrics it cannot compute,
	// typical for unprofitable companies with no trailing P/E.
	body := `{
		"quoteSummary": {
			"result": [{
				"defaultKeyStatistics": {
					"beta": {},
					"trailingEps": {"raw": null},
					"priceToBook": {"raw": 3.2}
				},
				"summaryDetail": {
					"trailingPE": null
				}
			}]
		}
	}`

	var data quoteSummaryResponse
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	snap := &types.Snapshot{}
	applyFundamentals(&data.QuoteSummary.Result[0], snap)

	if snap.Beta != nil {
		t.Errorf("Beta = %v, want nil", *snap.Beta)
	}
	if snap.EPS != nil {
		t.Errorf("EPS = %v, want nil", *snap.EPS)
	}
	if snap.PERatio != nil {
		t.Errorf("PERatio = %v, want nil", *snap.PERatio)
	}
	if snap.PBRatio == nil || *snap.PBRatio != 3.2 {
		t.Errorf("PBRatio = %v, want 3.2", snap.PBRatio)
	}
}

func TestMarketCapFallsBackToPriceModule(t *testing.T) {
	body := `{
		"quoteSummary": {
			"result": [{
				"summaryDetail": {},
				"price": {"marketCap": {"raw": 512000000}}
			}]
		}
	}`

	var data quoteSummaryResponse
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	snap := &types.Snapshot{}
	applyFundamentals(&data.QuoteSummary.Result[0], snap)
	if snap.MarketCap == nil || *snap.MarketCap != 512000000 {
		t.Errorf("MarketCap = %v, want 512000000", snap.MarketCap)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   provider.ErrorKind
		bad    bool
	}{
		{http.StatusOK, 0, false},
		{http.StatusTooManyRequests, provider.KindRateLimited, true},
		{http.StatusNotFound, provider.KindNotFound, true},
		{http.StatusInternalServerError, provider.KindNetworkError, true},
		{http.StatusBadGateway, provider.KindNetworkError, true},
	}

	for _, tt := range tests {
		kind, bad := classifyStatus(tt.status)
		if bad != tt.bad {
			t.Errorf("status %d: bad = %v, want %v", tt.status, bad, tt.bad)
			continue
		}
		if bad && kind != tt.kind {
			t.Errorf("status %d: kind = %v, want %v", tt.status, kind, tt.kind)
		}
	}
}
