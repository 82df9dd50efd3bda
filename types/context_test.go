package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()

	_, ok := RequestID(ctx)
	assert.False(t, ok)

	_, ok = RequestID(WithRequestID(ctx, ""))
	assert.False(t, ok, "empty id is treated as absent")

	id, ok := RequestID(WithRequestID(ctx, "req-1"))
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}
