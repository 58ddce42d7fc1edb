package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	assert.True(t, notFound(fmt.Errorf("get: %w", &types.NoSuchKey{})))
	assert.True(t, notFound(&types.NotFound{}))
	assert.False(t, notFound(errors.New("access denied")))
	assert.False(t, notFound(nil))
}
