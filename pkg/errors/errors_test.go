package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIs(t *testing.T) {
	err := NotFound("Chat", nil)
	assert.True(t, Is(err, "NOT_FOUND"))
	assert.False(t, Is(err, "FORBIDDEN"))
	assert.False(t, Is(nil, "NOT_FOUND"))
	assert.False(t, Is(fmt.Errorf("plain"), "NOT_FOUND"))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, Is(wrapped, "NOT_FOUND"))
}

func TestIsSchema(t *testing.T) {
	assert.False(t, IsSchema(nil))
	assert.False(t, IsSchema(fmt.Errorf("plain")))

	assert.True(t, IsSchema(Schema("missing index", nil)))

	grpcErr := status.Error(codes.FailedPrecondition, "The query requires an index")
	assert.True(t, IsSchema(grpcErr))
	assert.True(t, IsSchema(Internal("watch failed", grpcErr)))

	assert.False(t, IsSchema(status.Error(codes.PermissionDenied, "denied")))
	assert.False(t, IsSchema(Internal("watch failed", status.Error(codes.Unavailable, "down"))))
}
