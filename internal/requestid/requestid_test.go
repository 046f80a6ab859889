package requestid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AttachesID(t *testing.T) {
	ctx, id := New(context.Background())
	require.NotEmpty(t, id)
	assert.Equal(t, id, FromContext(ctx))

	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestFromContext_GeneratesWhenMissing(t *testing.T) {
	a := FromContext(context.Background())
	b := FromContext(context.Background())
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestWithRequestID_EmptyIgnored(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	assert.NotEmpty(t, FromContext(ctx))
}
