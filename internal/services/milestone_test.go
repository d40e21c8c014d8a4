package services_test

import (
	"testing"

	"github.com/firmahq/firma/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestCrossedMilestones(t *testing.T) {
	tests := []struct {
		name     string
		previous int
		new      int
		target   int
		want     []int
	}{
		{"no crossing below first threshold", 240, 249, 1000, nil},
		{"exact boundary crosses", 240, 250, 1000, []int{25}},
		{"single step across one threshold", 24, 25, 100, []int{25}},
		{"jump across several thresholds", 890, 1000, 1000, []int{100}},
		{"jump from 40 percent to done", 40, 100, 100, []int{50, 75, 100}},
		{"already past threshold", 260, 270, 1000, nil},
		{"overshoot past target", 99, 105, 100, []int{100}},
		{"zero target", 0, 10, 0, nil},
		{"no increment", 250, 250, 1000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.CrossedMilestones(tt.previous, tt.new, tt.target)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHighestCrossedMilestone(t *testing.T) {
	// One increment crossing multiple thresholds announces only the highest
	threshold, ok := services.HighestCrossedMilestone(40, 100, 100)
	assert.True(t, ok)
	assert.Equal(t, 100, threshold)

	threshold, ok = services.HighestCrossedMilestone(890, 1000, 1000)
	assert.True(t, ok)
	assert.Equal(t, 100, threshold)

	threshold, ok = services.HighestCrossedMilestone(240, 250, 1000)
	assert.True(t, ok)
	assert.Equal(t, 25, threshold)

	_, ok = services.HighestCrossedMilestone(251, 260, 1000)
	assert.False(t, ok)
}
