package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
)

const defaultOllamaURL = "http://localhost:11434"

// ollamaProvider ходит в нативный /api/chat Ollama без стриминга.
type ollamaProvider struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

func newOllamaProvider(baseURL, modelName string, timeout time.Duration, logger *zap.Logger) (*ollamaProvider, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	ollamaBaseURL := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL '%s': %w", ollamaBaseURL, err)
	}

	// запас к таймауту вызова, чтобы первым срабатывал контекст
	httpClient := &http.Client{
		Timeout:   timeout + 5*time.Second,
		Transport: &statusTransport{next: http.DefaultTransport},
	}
	return &ollamaProvider{
		client: api.NewClient(parsedURL, httpClient),
		model:  modelName,
		logger: logger.Named("OllamaProvider").With(zap.String("model", modelName)),
	}, nil
}

func (p *ollamaProvider) Name() string { return "ollama/" + p.model }

func (p *ollamaProvider) Rephrase(ctx context.Context, prompt string) model.Outcome {
	stream := false
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
	}

	status := &statusRecorder{}
	var resp api.ChatResponse
	err := p.client.Chat(withStatusRecorder(ctx, status), req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		// клиент Ollama теряет код ответа, если в теле есть "error"
		if status.code == http.StatusBadRequest {
			p.logger.Info("Prompt rejected by Ollama", zap.Error(err))
			return model.UserFailure{Message: err.Error(), InputTokens: resp.PromptEvalCount, OutputTokens: resp.EvalCount}
		}
		p.logger.Warn("Ollama chat failed", zap.Error(err))
		return model.SystemFailure{Message: err.Error(), InputTokens: resp.PromptEvalCount, OutputTokens: resp.EvalCount}
	}

	if strings.TrimSpace(resp.Message.Content) == "" {
		return model.SystemFailure{Message: "empty response", InputTokens: resp.PromptEvalCount, OutputTokens: resp.EvalCount}
	}
	return model.Success{
		Text:         resp.Message.Content,
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
	}
}

type statusRecorderKey struct{}

// statusRecorder хранит код ответа одного вызова.
type statusRecorder struct {
	code int
}

func withStatusRecorder(ctx context.Context, rec *statusRecorder) context.Context {
	return context.WithValue(ctx, statusRecorderKey{}, rec)
}

// statusTransport пишет код ответа в statusRecorder из контекста запроса.
type statusTransport struct {
	next http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if resp != nil {
		if rec, ok := req.Context().Value(statusRecorderKey{}).(*statusRecorder); ok {
			rec.code = resp.StatusCode
		}
	}
	return resp, err
}
