package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"clipkeeper/internal/faults"
	"clipkeeper/internal/logging"
	"clipkeeper/internal/prompts"
	"clipkeeper/internal/queue"
)

const (
	sentencesPath = "/api/sentences"
	uploadPath    = "/api/upload"
)

// UploadResponse is the server's acknowledgement of a stored clip.
type UploadResponse struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

// Client is the HTTP client for the ingestion endpoint.
type Client struct {
	rest   *resty.Client
	logger *slog.Logger
}

// NewClient builds a client for baseURL. A zero timeout leaves requests
// bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		rest.SetTimeout(timeout)
	}
	return &Client{rest: rest, logger: logging.NewComponentLogger(logger, "ingest")}
}

// BaseURL reports the configured endpoint.
func (c *Client) BaseURL() string {
	return c.rest.BaseURL
}

// FetchSentences asks the server for up to limit prompts.
func (c *Client) FetchSentences(ctx context.Context, limit int) ([]prompts.Sentence, error) {
	var sentences []prompts.Sentence
	req := c.rest.R().SetContext(ctx).SetResult(&sentences)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	resp, err := req.Get(sentencesPath)
	if err != nil {
		return nil, fmt.Errorf("fetch sentences: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch sentences: server returned %s", resp.Status())
	}
	return sentences, nil
}

// Upload sends one clip. Fields are written in a fixed order ahead of the
// video part so the server knows where to store the file before it arrives.
func (c *Client) Upload(ctx context.Context, item queue.Item, media io.Reader) (UploadResponse, error) {
	sentenceID := strconv.FormatInt(item.SentenceID, 10)
	var ack UploadResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&ack).
		SetMultipartFields(
			textField("userName", item.Metadata.Name),
			textField("userAge", item.Metadata.Age),
			textField("userGender", string(item.Metadata.Gender)),
			textField("sentenceId", sentenceID),
			textField("sentenceText", item.Text),
			&resty.MultipartField{
				Param:       "video",
				FileName:    "video_" + sentenceID + ".mp4",
				ContentType: "video/mp4",
				Reader:      media,
			},
		).
		Post(uploadPath)
	if err != nil {
		return UploadResponse{}, faults.Wrap(faults.ErrUpload, "ingest", "upload", "item "+item.ID, err)
	}
	if !resp.IsSuccess() {
		return UploadResponse{}, faults.Wrap(faults.ErrUpload, "ingest", "upload",
			fmt.Sprintf("item %s: server returned %s", item.ID, resp.Status()), nil)
	}
	c.logger.Debug("clip uploaded",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("server_path", ack.Path),
	)
	return ack, nil
}

func textField(name, value string) *resty.MultipartField {
	return &resty.MultipartField{Param: name, Reader: strings.NewReader(value)}
}
