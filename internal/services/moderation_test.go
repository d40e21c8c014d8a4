package services_test

import (
	"context"
	"testing"

	"github.com/firmahq/firma/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternModerator(t *testing.T) {
	moderator, err := services.NewPatternModerator(2, []string{`(?i)viagra`})
	require.NoError(t, err)

	tests := []struct {
		name     string
		text     string
		approved bool
	}{
		{"plain comment", "I support this petition wholeheartedly.", true},
		{"one link is fine", "See https://example.com for context.", true},
		{"too many links", "https://a.com https://b.com https://c.com", false},
		{"blocked pattern", "Buy VIAGRA now", false},
		{"empty comment", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approved, reasons, err := moderator.Moderate(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.approved, approved)
			if !tt.approved {
				assert.NotEmpty(t, reasons)
			}
		})
	}
}

func TestNewPatternModerator_InvalidPattern(t *testing.T) {
	_, err := services.NewPatternModerator(2, []string{`([`})
	assert.Error(t, err)
}
