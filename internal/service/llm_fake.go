package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rephrase-server/internal/model"
)

// Маркеры в prompt, которыми тесты управляют исходом FakeLLMProvider.
const (
	FakeUserErrorMarker   = "USER_ERROR"
	FakeServerErrorMarker = "SERVER_ERROR"
)

// FakeLLMProvider - детерминированный генератор для тестов и локального запуска.
type FakeLLMProvider struct {
	delay time.Duration
}

func NewFakeLLMProvider(delay time.Duration) *FakeLLMProvider {
	return &FakeLLMProvider{delay: delay}
}

func (f *FakeLLMProvider) Name() string { return "fake" }

func (f *FakeLLMProvider) Rephrase(ctx context.Context, prompt string) model.Outcome {
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.SystemFailure{Message: fmt.Sprintf("fake provider interrupted: %v", ctx.Err())}
		case <-timer.C:
		}
	}

	switch {
	case strings.Contains(prompt, FakeUserErrorMarker):
		return model.UserFailure{Message: "User input validation failed", InputTokens: 5, OutputTokens: 10}
	case strings.Contains(prompt, FakeServerErrorMarker):
		return model.SystemFailure{Message: "Internal server error occurred", InputTokens: 0, OutputTokens: 0}
	default:
		return model.Success{Text: "rephrased " + prompt, InputTokens: 10, OutputTokens: 200}
	}
}
