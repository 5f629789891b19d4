package client

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"timedquiz/internal/model"
)

const requestDeadline = 15 * time.Second

// ErrRequestFailed is returned when the question service cannot be reached or
// answers with anything but a successful envelope
var ErrRequestFailed = errors.New("question request failed")

// QuestionClient fetches question sets from the HTTP API. It satisfies quiz.Fetcher.
type QuestionClient struct {
	httpClient *req.Client
}

// NewQuestionClient creates a client for the API rooted at baseURL
func NewQuestionClient(baseURL string) *QuestionClient {
	httpClient := req.C().
		SetBaseURL(baseURL).
		SetTimeout(requestDeadline).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)

	return &QuestionClient{httpClient: httpClient}
}

// GetQuestions requests a sample of singleCount and multipleCount questions
func (c *QuestionClient) GetQuestions(ctx context.Context, singleCount, multipleCount int) (*model.QuestionSet, error) {
	var body model.QuestionsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("singleCount", strconv.Itoa(singleCount)).
		SetQueryParam("multipleCount", strconv.Itoa(multipleCount)).
		SetSuccessResult(&body).
		SetErrorResult(&body).
		Get("/api/questions")
	if err != nil {
		return nil, errors.Wrapf(ErrRequestFailed, "GET /api/questions: %v", err)
	}

	if resp.GetStatusCode() != http.StatusOK || !body.Success {
		message := body.Message
		if message == "" {
			message = resp.Status
		}
		return nil, errors.Wrapf(ErrRequestFailed, "status %d: %s", resp.GetStatusCode(), message)
	}
	if body.Data == nil {
		return nil, errors.Wrap(ErrRequestFailed, "response carries no question set")
	}
	return body.Data, nil
}
