package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightFor(t *testing.T) {
	tests := []struct {
		name     string
		k        int
		expected int
	}{
		{name: "first responsive slot", k: 0, expected: -1},
		{name: "last responsive slot", k: 3, expected: -1},
		{name: "first neutral slot", k: 4, expected: 0},
		{name: "first throughput slot", k: 8, expected: 1},
		{name: "highest table slot", k: 31, expected: 3},
		{name: "beyond table defaults to neutral", k: 100, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, weightFor(tt.k))
		})
	}
}

func TestBatchSize(t *testing.T) {
	tests := []struct {
		name     string
		queueLen int
		weight   int
		expected int
	}{
		{name: "negative weight always one", queueLen: 1000, weight: -1, expected: 1},
		{name: "zero weight drains whole queue", queueLen: 5, weight: 0, expected: 5},
		{name: "zero weight empty queue floors to one", queueLen: 0, weight: 0, expected: 1},
		{name: "positive weight halves repeatedly", queueLen: 16, weight: 2, expected: 4},
		{name: "positive weight floors to one", queueLen: 1, weight: 3, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, batchSize(tt.queueLen, tt.weight))
		})
	}
}
