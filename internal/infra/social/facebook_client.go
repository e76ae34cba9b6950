// internal/infra/social/facebook_client.go
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainSocial "press_distributor/internal/domain/social"

	"github.com/sirupsen/logrus"
)

// GraphClient implements the social.Client interface against the Facebook
// Graph API. Posts are created unpublished with a scheduled_publish_time so
// the platform itself releases them at the assigned slot.
type GraphClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

func NewGraphClient(baseURL string, timeout time.Duration, logger *logrus.Entry) *GraphClient {
	return &GraphClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type graphResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SchedulePost creates a scheduled post on the destination page. Any
// transport error, timeout or non-2xx status is a delivery failure; the
// caller does not distinguish transient from permanent causes.
func (c *GraphClient) SchedulePost(ctx context.Context, req domainSocial.ScheduleRequest) (*domainSocial.ScheduleResult, error) {
	form := url.Values{}
	form.Set("access_token", req.AccessToken)
	form.Set("published", "false")
	form.Set("scheduled_publish_time", strconv.FormatInt(req.PublishAt, 10))

	var endpoint string
	if req.VideoURL != "" {
		endpoint = fmt.Sprintf("%s/%s/videos", c.baseURL, req.PageID)
		form.Set("file_url", req.VideoURL)
		form.Set("description", fmt.Sprintf("%s %s", req.Message, req.LinkURL))
	} else {
		endpoint = fmt.Sprintf("%s/%s/feed", c.baseURL, req.PageID)
		form.Set("message", req.Message)
		form.Set("link", req.LinkURL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build graph request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read graph response: %w", err)
	}

	var parsed graphResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, fmt.Errorf("unexpected graph response body: %w", err)
		}
		return nil, fmt.Errorf("graph request returned status %d", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.Error != nil {
		msg := "unknown graph error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		c.logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"page_id": req.PageID,
		}).Warn("Graph API rejected scheduled post")
		return nil, fmt.Errorf("graph request returned status %d: %s", resp.StatusCode, msg)
	}

	return &domainSocial.ScheduleResult{PlatformPostID: parsed.ID}, nil
}
