// server/internal/classifier/client.go
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"time"

	"waste-pickup-api-server/config"
	"waste-pickup-api-server/internal/models"
	"waste-pickup-api-server/internal/notify"
)

const (
	// Hard deadline on each call to the scoring service.
	requestTimeout = 10 * time.Second

	// AlertThreshold is the clamped score above which (strictly) a
	// contamination alert is dispatched.
	AlertThreshold = 0.3
)

// Field name variants the scoring service has been observed to return.
// Checked in order; the first present key wins.
var (
	scoreFields = []string{"score", "contamination_score", "prediction"}
	labelFields = []string{"label", "class"}
)

// Notifier delivers contamination alerts. Delivery failures are logged and
// never fail the scoring call.
type Notifier interface {
	SendAlert(ctx context.Context, alert notify.Alert) error
}

// Client calls the external contamination classifier. Scoring goes through
// the stored image URL first and falls back to uploading the raw bytes when
// the URL attempt fails or yields a non-numeric score.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	notifier Notifier
}

func NewClient(cfg config.ClassifierConfig, notifier Notifier) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: requestTimeout},
		notifier: notifier,
	}
}

// Score rates the contamination of the submitted image, clamped into [0,1].
// Above AlertThreshold a contamination alert is dispatched as a side effect;
// the alert outcome never changes the returned result.
func (c *Client) Score(ctx context.Context, image models.ImageRef, raw []byte, wasteType, location string) (float64, string, error) {
	score, label, err := c.scoreByURL(ctx, image.SecureURL)
	if err != nil {
		log.Printf("URL scoring failed, trying raw bytes: %v", err)
		score, label, err = c.scoreByBytes(ctx, raw, path.Base(image.PublicID))
	}
	if err != nil {
		return 0, "", fmt.Errorf("both scoring attempts failed: %w", err)
	}

	score = clamp01(score)

	if score > AlertThreshold && c.notifier != nil {
		alert := notify.Alert{
			WasteType:  wasteType,
			Location:   location,
			Score:      score,
			Label:      label,
			DetectedAt: time.Now().UTC(),
			ImageURL:   image.SecureURL,
		}
		if err := c.notifier.SendAlert(ctx, alert); err != nil {
			log.Printf("Failed to send contamination alert: %v", err)
		}
	}

	return score, label, nil
}

func (c *Client) scoreByURL(ctx context.Context, imageURL string) (float64, string, error) {
	body, err := json.Marshal(map[string]string{"imageUrl": imageURL})
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) scoreByBytes(ctx context.Context, raw []byte, filename string) (float64, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return 0, "", err
	}
	if _, err := part.Write(raw); err != nil {
		return 0, "", err
	}
	if err := writer.Close(); err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (float64, string, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, "", fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, "", fmt.Errorf("failed to decode classifier response: %w", err)
	}

	score, err := extractScore(data)
	if err != nil {
		return 0, "", err
	}
	return score, extractLabel(data), nil
}

// extractScore pulls the score out of the classifier response, trying each
// known field name in order. A completely missing score defaults to 0; a
// present but non-numeric score is an error so the caller can retry via the
// raw-bytes path.
func extractScore(data map[string]interface{}) (float64, error) {
	for _, field := range scoreFields {
		v, ok := data[field]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return 0, fmt.Errorf("classifier field %q is not a finite number", field)
			}
			return n, nil
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, fmt.Errorf("classifier field %q is not numeric: %q", field, n)
			}
			return f, nil
		default:
			return 0, fmt.Errorf("classifier field %q has unexpected type %T", field, v)
		}
	}
	return 0, nil
}

func extractLabel(data map[string]interface{}) string {
	for _, field := range labelFields {
		if v, ok := data[field].(string); ok && v != "" {
			return v
		}
	}
	return "unknown"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
