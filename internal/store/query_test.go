package store

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/model"
)

func TestListRunsQuery_Defaults(t *testing.T) {
	query, args, err := listRunsQuery(RunFilter{}, sq.Question)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, request, status, result, error, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT 100", query)
	assert.Empty(t, args)
}

func TestListRunsQuery_AllFiltersDollar(t *testing.T) {
	after := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	query, args, err := listRunsQuery(RunFilter{
		Status:       model.RunStatusComplete,
		StoryID:      "story-1",
		Provider:     "OpenAI",
		CreatedAfter: after,
		Limit:        10,
		Offset:       20,
	}, sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, request, status, result, error, created_at, updated_at FROM runs "+
			"WHERE status = $1 AND story_id = $2 AND provider = $3 AND created_at > $4 "+
			"ORDER BY created_at DESC LIMIT 10 OFFSET 20",
		query)
	assert.Equal(t, []any{"complete", "story-1", "OpenAI", after}, args)
}
