// Package notifications delivers outlier alerts to an external
// webhook. Delivery is best-effort and asynchronous; refresh and
// detection paths never wait on it.
package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"sectorview/database/types"
)

// WebhookManager posts outlier alerts to a configured endpoint. An
// empty URL disables delivery entirely.
type WebhookManager struct {
	url    string
	client *http.Client
}

// WebhookPayload represents the JSON payload sent to the webhook
type WebhookPayload struct {
	DetectedAt        time.Time `json:"DetectedAt"`
	StockSymbol       string    `json:"StockSymbol"`
	SectorName        string    `json:"SectorName"`
	CompositeScore    float64   `json:"CompositeScore"`
	OutlierType       string    `json:"OutlierType"`
	SignificanceLevel string    `json:"SignificanceLevel"`
	Message           string    `json:"Message"`
}

// NewWebhookManager creates a new webhook manager
func NewWebhookManager(url string) *WebhookManager {
	return &WebhookManager{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook endpoint is configured
func (wm *WebhookManager) Enabled() bool {
	return wm != nil && wm.url != ""
}

// NotifyOutliers sends one alert per Extreme outlier in the detection
// results. Moderate and Strong outliers stay in the dashboard only.
func (wm *WebhookManager) NotifyOutliers(sectors []types.SectorOutliers) {
	if !wm.Enabled() {
		return
	}

	now := time.Now().UTC()
	for _, sector := range sectors {
		for _, outlier := range sector.Outliers {
			if outlier.SignificanceLevel != "Extreme" {
				continue
			}
			payload := wm.createPayload(sector, outlier, now)
			go wm.deliver(payload)
		}
	}
}

func (wm *WebhookManager) createPayload(sector types.SectorOutliers, outlier types.OutlierStock, detectedAt time.Time) WebhookPayload {
	// Example: "📊 OUTLIER! NVDA (Technology) GrowthPremium/Extreme | Composite: 3.42"
	message := fmt.Sprintf("📊 OUTLIER! %s (%s) %s/%s | Composite: %.2f",
		outlier.Symbol, sector.SectorName, outlier.OutlierType,
		outlier.SignificanceLevel, outlier.CompositeScore)

	return WebhookPayload{
		DetectedAt:        detectedAt,
		StockSymbol:       outlier.Symbol,
		SectorName:        sector.SectorName,
		CompositeScore:    outlier.CompositeScore,
		OutlierType:       outlier.OutlierType,
		SignificanceLevel: outlier.SignificanceLevel,
		Message:           message,
	}
}

// deliver posts one payload. One retry on failure, then give up.
func (wm *WebhookManager) deliver(payload WebhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️  Failed to marshal webhook payload: %v", err)
		return
	}

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(2 * time.Second)
		}
		resp, err := wm.client.Post(wm.url, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("⚠️  Webhook delivery failed for %s: %v", payload.StockSymbol, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return
		}
		log.Printf("⚠️  Webhook returned %d for %s", resp.StatusCode, payload.StockSymbol)
	}
}
