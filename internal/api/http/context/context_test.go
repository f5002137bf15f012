package context

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestManager_SetAndGetAccountID(t *testing.T) {
	t.Parallel()

	m := NewManager()
	accountID := uuid.New()

	ctx := m.SetAccountIDToContext(context.Background(), accountID)
	got, ok := m.GetAccountIDFromContext(ctx)

	assert.True(t, ok)
	assert.Equal(t, accountID, got)
}

func TestManager_GetAccountID_Missing(t *testing.T) {
	t.Parallel()

	m := NewManager()

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "empty context", ctx: context.Background()},
		{name: "nil account id", ctx: m.SetAccountIDToContext(context.Background(), uuid.Nil)},
		{name: "foreign value under string key", ctx: context.WithValue(context.Background(), "account_id", uuid.New())}, //nolint:staticcheck
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.GetAccountIDFromContext(tt.ctx)
			assert.False(t, ok)
			assert.Equal(t, uuid.Nil, got)
		})
	}
}

func TestManager_OverwritesAccountID(t *testing.T) {
	t.Parallel()

	m := NewManager()
	first, second := uuid.New(), uuid.New()

	ctx := m.SetAccountIDToContext(context.Background(), first)
	ctx = m.SetAccountIDToContext(ctx, second)

	got, ok := m.GetAccountIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, second, got)
}
