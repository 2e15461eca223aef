package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-risk-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var out map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "risk:group:g-1:p1", &out), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "risk:group:g-1:p1", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "risk:group:g-1:*"))
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())
}
