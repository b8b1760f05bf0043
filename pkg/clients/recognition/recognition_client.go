// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package recognition_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	internal_audio "github.com/rapidaai/songid/internal/audio"
	"github.com/rapidaai/songid/pkg/commons"
	"github.com/rapidaai/songid/pkg/utils"
)

const HeaderAPIKey = "x-api-key"

// RecognizeResponse is the endpoint's wire contract. A nil body with
// NoContent set means "valid request, no match yet, try another chunk".
type RecognizeResponse struct {
	NoContent  bool     `json:"-"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	ExternalID string   `json:"externalId"`
}

// RecognitionServiceClient talks to the external recognition endpoint.
// One audio blob per call; interpretation of the three outcomes is the
// submitter's job, transport and decoding are this client's.
type RecognitionServiceClient interface {
	Recognize(ctx context.Context, mode string, blob internal_audio.Blob) (*RecognizeResponse, error)
}

type recognitionServiceClient struct {
	logger commons.Logger
	client *resty.Client
}

func NewRecognitionServiceClientHTTP(logger commons.Logger, endpoint, apiKey string, timeout time.Duration) RecognitionServiceClient {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader(HeaderAPIKey, apiKey)
	return &recognitionServiceClient{
		logger: logger,
		client: client,
	}
}

func (c *recognitionServiceClient) Recognize(ctx context.Context, mode string, blob internal_audio.Blob) (*RecognizeResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", blob.MimeType).
		SetQueryParam("mode", mode).
		SetBody(blob.Data).
		Post("/recognize")
	if err != nil {
		return nil, fmt.Errorf("recognition: request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusNoContent, http.StatusAccepted:
		return &RecognizeResponse{NoContent: true}, nil
	case http.StatusOK:
		var result RecognizeResponse
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return nil, fmt.Errorf("recognition: malformed response body: %w", err)
		}
		if utils.IsEmpty(result.Title) {
			return nil, fmt.Errorf("recognition: success response without a title")
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("recognition: endpoint returned status %d", resp.StatusCode())
	}
}
