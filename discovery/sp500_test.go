package discovery

import (
	"fmt"
	"strings"
	"testing"
)

func wikiHTML(rows ...string) *strings.Reader {
	var b strings.Builder
	b.WriteString(`<table class="wikitable sortable"><tbody>`)
	b.WriteString(`<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th></tr>`)
	for _, row := range rows {
		b.WriteString(row)
	}
	b.WriteString(`</tbody></table>`)
	return strings.NewReader(b.String())
}

func linkedRow(symbol, name, sector string) string {
	return fmt.Sprintf(
		`<tr><td><a href="/wiki/%s">%s</a></td><td><a href="/wiki/%s">%s</a></td><td>%s</td><td>Sub</td></tr>`,
		symbol, symbol, name, name, sector)
}

func plainRow(symbol, name, sector string) string {
	return fmt.Sprintf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>Sub</td></tr>`, symbol, name, sector)
}

func TestParseSP500HTML(t *testing.T) {
	entries, err := parseSP500HTML(wikiHTML(
		linkedRow("AAPL", "Apple Inc.", "Information Technology"),
		linkedRow("JPM", "JPMorgan Chase", "Financials"),
	))
	if err != nil {
		t.Fatalf("parseSP500HTML: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Symbol != "AAPL" || entries[0].Name != "Apple Inc." || entries[0].SectorName != "Information Technology" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Symbol != "JPM" || entries[1].SectorName != "Financials" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestParseSP500HTMLPlainTextCells(t *testing.T) {
	entries, err := parseSP500HTML(wikiHTML(plainRow("BRK.B", "Berkshire Hathaway", "Financials")))
	if err != nil {
		t.Fatalf("parseSP500HTML: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Symbol != "BRK.B" || entries[0].Name != "Berkshire Hathaway" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestParseSP500HTMLSkipsMalformedRows(t *testing.T) {
	entries, err := parseSP500HTML(wikiHTML(
		`<tr><td>SHORT</td><td>Too few cells</td></tr>`,
		plainRow("", "No symbol", "Energy"),
		plainRow("XOM", "Exxon Mobil", "Energy"),
	))
	if err != nil {
		t.Fatalf("parseSP500HTML: %v", err)
	}
	if len(entries) != 1 || entries[0].Symbol != "XOM" {
		t.Errorf("entries = %+v, want only XOM", entries)
	}
}

func TestParseSP500HTMLNoTable(t *testing.T) {
	_, err := parseSP500HTML(strings.NewReader("<html><body><p>nothing here</p></body></html>"))
	if err == nil {
		t.Error("expected error when table is missing")
	}
}

func TestCanonicalSectorName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Information Technology", "Technology"},
		{"Financial Services", "Financials"},
		{"Consumer Cyclical", "Consumer Discretionary"},
		{"Consumer Defensive", "Consumer Staples"},
		{"Healthcare", "Health Care"},
		{"Basic Materials", "Materials"},
		{"Energy", "Energy"},
		{"Utilities", "Utilities"},
		{"Real Estate", "Real Estate"},
		{"Technology", "Technology"},
	}
	for _, tt := range tests {
		if got := CanonicalSectorName(tt.in); got != tt.want {
			t.Errorf("CanonicalSectorName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
