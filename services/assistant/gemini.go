package assistantsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assistant"
)

type (
	geminiService struct {
		baseURL string
		apiKey  string
		model   string
		client  *http.Client
		logger  core.Logger
	}

	geminiPart    struct{ Text string `json:"text"` }
	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}
	geminiSafetySetting struct {
		Category  string `json:"category"`
		Threshold string `json:"threshold"`
	}
	geminiGenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		MaxOutputTokens  int     `json:"maxOutputTokens"`
		ResponseMimeType string  `json:"responseMimeType,omitempty"`
	}
	geminiRequest struct {
		Contents         []geminiContent        `json:"contents"`
		SafetySettings   []geminiSafetySetting  `json:"safetySettings"`
		GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	}

	geminiResponse struct {
		Candidates []struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback *struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

var _ assistant.PromptService = (*geminiService)(nil)

var defaultSafetySettings = []geminiSafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

func NewGeminiService(logger core.Logger) *geminiService {
	conf := core.Conf.Assistant
	return &geminiService{
		baseURL: conf.BaseURL,
		apiKey:  conf.ApiKey,
		model:   conf.Model,
		client:  &http.Client{Timeout: conf.Timeout},
		logger:  logger,
	}
}

func (svc *geminiService) Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	payload := geminiRequest{
		Contents:       []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		SafetySettings: defaultSafetySettings,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 2048,
		},
	}
	if jsonOutput {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshalling prompt")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", svc.baseURL, svc.model, svc.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := svc.client.Do(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("calling model %s: %v", svc.model, err), err)
		return "", errors.Wrap(assistant.ErrUnavailable, err.Error())
	}
	defer res.Body.Close()

	var parsed geminiResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}

	if res.StatusCode >= http.StatusBadRequest {
		msg := res.Status
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		svc.logger.Error(fmt.Sprintf("model %s - status: %d - %s", svc.model, res.StatusCode, msg))
		return "", errors.Wrap(assistant.ErrUnavailable, msg)
	}

	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", errors.Wrap(assistant.ErrBlocked, parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", assistant.ErrEmptyResponse
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
