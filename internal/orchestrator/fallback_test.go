package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldFallback(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{ErrorKindRateLimitExhausted, true},
		{ErrorKindProvider, false},
		{ErrorKindSchemaValidation, false},
		{ErrorKindBinding, false},
		{ErrorKindCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldFallback(tt.kind))
		})
	}
}
