package service

import (
	"strings"
	"unicode/utf8"
)

const globalPrompt = "Fake global prompt."

// BuildRephrasePrompt собирает prompt: глобальная инструкция, инструкция стиля, ввод пользователя.
func BuildRephrasePrompt(userInput, styleInstructions string) string {
	return strings.Join([]string{
		globalPrompt,
		"",
		styleInstructions,
		"",
		"Input text: " + userInput,
	}, "\n")
}

// CalcUserTokens - цена запроса в единицах баланса: число символов ввода.
func CalcUserTokens(userInput string) int64 {
	return int64(utf8.RuneCountInString(userInput))
}
