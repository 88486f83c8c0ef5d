// Package export fetches detailed conversation exports from the team
// dashboard API. Export responses can arrive truncated mid-array when
// the upstream hits its own timeout, so parse failures go through a
// bracket-salvage pass before giving up.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"themochi.app/analytics/common/logger"
	"themochi.app/analytics/core/config"
	"themochi.app/analytics/internal/ingest"
)

const exportPath = "/mochi-team-dashboard/conversations/detailed-export/"

// APIError is returned for any failure talking to the dashboard API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("dashboard API: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dashboard API: %s", e.Message)
}

// Client talks to the dashboard's detailed-export endpoint using a
// session cookie.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

func NewClient(cfg config.ExportConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		sessionID: cfg.SessionID,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// FetchConversations pulls the raw conversation export for an
// organization over an inclusive date range (YYYY-MM-DD).
func (c *Client) FetchConversations(ctx context.Context, orgID, dateFrom, dateTo string) ([]ingest.RawConversation, error) {
	query := url.Values{}
	query.Set("org_id", orgID)
	query.Set("date_from", dateFrom)
	query.Set("date_to", dateTo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+exportPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building export request: %w", err)
	}
	req.Header.Set("Cookie", "sessionid="+c.sessionID)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &APIError{Message: fmt.Sprintf("request timed out: %v", err)}
		}
		return nil, &APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode == http.StatusForbidden {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "authentication failed, the session ID may be expired",
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    logger.Truncate(string(body), 200),
		}
	}

	conversations, err := decodeExport(ctx, body)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "fetched conversation export",
		"organization", orgID, "conversations", len(conversations))

	return conversations, nil
}

// decodeExport parses the export body, salvaging truncated arrays by
// cutting back to the last complete object and closing the bracket.
func decodeExport(ctx context.Context, body []byte) ([]ingest.RawConversation, error) {
	var conversations []ingest.RawConversation
	err := json.Unmarshal(body, &conversations)
	if err == nil {
		return conversations, nil
	}

	slog.WarnContext(ctx, "export JSON parse failed, attempting salvage", "error", err)

	text := strings.TrimRight(string(body), " \t\r\n")
	if strings.HasPrefix(text, "[") && !strings.HasSuffix(text, "]") {
		if last := strings.LastIndex(text, "}"); last > 0 {
			fixed := text[:last+1] + "]"
			if salvageErr := json.Unmarshal([]byte(fixed), &conversations); salvageErr == nil {
				slog.InfoContext(ctx, "salvaged truncated export array",
					"conversations", len(conversations))
				return conversations, nil
			}
		}
	}

	return nil, &APIError{Message: fmt.Sprintf("JSON parsing failed and salvage unsuccessful: %v", err)}
}
