package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chainguard/pkg/domain"
)

func TestAccessors(t *testing.T) {
	t.Run("identity round trip", func(t *testing.T) {
		_, ok := Identity(context.Background())
		assert.False(t, ok)

		want := domain.Identity{Issuer: "OrgA", Subject: "Alice", Role: domain.RoleAuditor}
		got, ok := Identity(WithIdentity(context.Background(), want))
		assert.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("empty case key counts as absent", func(t *testing.T) {
		_, ok := CaseKey(WithCaseKey(context.Background(), nil))
		assert.False(t, ok)

		key, ok := CaseKey(WithCaseKey(context.Background(), []byte("k")))
		assert.True(t, ok)
		assert.Equal(t, []byte("k"), key)
	})

	t.Run("time falls back to wall clock", func(t *testing.T) {
		fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
		assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
	})
}
