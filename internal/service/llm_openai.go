package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
)

// Коды ошибок OpenAI-совместимых API, означающие отказ по содержимому ввода.
var contentPolicyCodes = map[string]struct{}{
	"content_filter":           {},
	"content_policy_violation": {},
}

// openAIProvider работает с любым OpenAI-совместимым chat completions API.
type openAIProvider struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

func newOpenAIProvider(apiKey, baseURL, modelName string, logger *zap.Logger) *openAIProvider {
	clientCfg := openaigo.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &openAIProvider{
		client: openaigo.NewClientWithConfig(clientCfg),
		model:  modelName,
		logger: logger.Named("OpenAIProvider").With(zap.String("model", modelName)),
	}
}

func (p *openAIProvider) Name() string { return "openai/" + p.model }

func (p *openAIProvider) Rephrase(ctx context.Context, prompt string) model.Outcome {
	resp, err := p.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: p.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		inputTokens := p.countTokens(prompt)
		var apiErr *openaigo.APIError
		if errors.As(err, &apiErr) && isContentPolicyError(apiErr) {
			p.logger.Info("Prompt rejected by content policy", zap.String("code", fmt.Sprint(apiErr.Code)))
			return model.UserFailure{Message: apiErr.Message, InputTokens: inputTokens}
		}
		p.logger.Warn("Chat completion failed", zap.Error(err))
		return model.SystemFailure{Message: err.Error(), InputTokens: inputTokens}
	}

	if len(resp.Choices) == 0 {
		return model.SystemFailure{Message: "empty response: no choices", InputTokens: resp.Usage.PromptTokens}
	}
	choice := resp.Choices[0]
	text := choice.Message.Content

	inputTokens, outputTokens := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if resp.Usage.TotalTokens == 0 {
		inputTokens, outputTokens = p.countTokens(prompt), p.countTokens(text)
		p.logger.Debug("Usage missing in response, tokens estimated",
			zap.Int("input_tokens", inputTokens),
			zap.Int("output_tokens", outputTokens))
	}

	if choice.FinishReason == openaigo.FinishReasonContentFilter {
		return model.UserFailure{Message: "completion stopped by content filter", InputTokens: inputTokens, OutputTokens: outputTokens}
	}
	if strings.TrimSpace(text) == "" {
		return model.SystemFailure{Message: "empty response", InputTokens: inputTokens, OutputTokens: outputTokens}
	}
	return model.Success{Text: text, InputTokens: inputTokens, OutputTokens: outputTokens}
}

// countTokens считает токены через tiktoken. Без словаря - грубая оценка в 4 символа на токен.
func (p *openAIProvider) countTokens(text string) int {
	p.encOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel(p.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		}
		if err != nil {
			p.logger.Warn("Tokenizer unavailable, falling back to estimate", zap.Error(err))
			return
		}
		p.enc = enc
	})
	if p.enc == nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	return len(p.enc.Encode(text, nil, nil))
}

func isContentPolicyError(apiErr *openaigo.APIError) bool {
	if apiErr.Code != nil {
		if _, ok := contentPolicyCodes[fmt.Sprint(apiErr.Code)]; ok {
			return true
		}
	}
	if apiErr.Type != "" {
		if _, ok := contentPolicyCodes[apiErr.Type]; ok {
			return true
		}
	}
	return false
}
