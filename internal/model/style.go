package model

import (
	"time"

	"github.com/google/uuid"
)

// Style - стиль перефразирования. Для новых запросов доступны только включённые.
type Style struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	ExampleInput  string    `json:"example_input" db:"example_input"`
	ExampleOutput string    `json:"example_output" db:"example_output"`
	Prompt        string    `json:"-" db:"prompt"`
	IsEnabled     bool      `json:"is_enabled" db:"is_enabled"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
