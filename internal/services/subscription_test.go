package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/stadtmeldung/report-server/internal/storage"
)

func newSubs(t *testing.T) (*SubscriptionService, *storage.MemStore) {
	t.Helper()
	store := storage.NewMemStore()
	return NewSubscriptionService(store, zap.NewNop().Sugar()), store
}

func TestSubscriptionAddDeduplicates(t *testing.T) {
	subs, _ := newSubs(t)

	subs.Add(models.SubscriptionArea, "Mitte")
	subs.Add(models.SubscriptionArea, "mitte")
	subs.Add(models.SubscriptionArea, "MITTE")
	subs.Add(models.SubscriptionZip, "10115")
	subs.Add(models.SubscriptionZip, "10115")
	subs.Add(models.SubscriptionArea, "") // ignored

	list := subs.List()
	require.Len(t, list, 2)
	assert.Equal(t, models.Subscription{Type: models.SubscriptionArea, Value: "Mitte"}, list[0])
	assert.Equal(t, models.Subscription{Type: models.SubscriptionZip, Value: "10115"}, list[1])
}

func TestSubscriptionSameValueDifferentType(t *testing.T) {
	subs, _ := newSubs(t)
	subs.Add(models.SubscriptionArea, "10115")
	subs.Add(models.SubscriptionZip, "10115")
	assert.Len(t, subs.List(), 2, "dedupe is per (type, value)")
}

func TestSubscriptionRemoveByIndex(t *testing.T) {
	subs, _ := newSubs(t)
	subs.Add(models.SubscriptionArea, "Mitte")
	subs.Add(models.SubscriptionArea, "Kreuzberg")

	subs.Remove(5) // out of range, ignored
	subs.Remove(-1)
	require.Len(t, subs.List(), 2)

	subs.Remove(0)
	list := subs.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Kreuzberg", list[0].Value)
}

func TestSubscriptionMatch(t *testing.T) {
	subs, _ := newSubs(t)
	subs.Add(models.SubscriptionArea, "Mitte")
	subs.Add(models.SubscriptionZip, "10997")

	tests := []struct {
		name string
		area string
		zip  string
		want bool
	}{
		{"area exact", "Mitte", "", true},
		{"area case-insensitive", "mitte", "", true},
		{"zip exact", "", "10997", true},
		{"zip is not case-folded or fuzzy", "", "10 997", false},
		{"no rule matches", "Neukölln", "12043", false},
		{"empty location", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subs.Match(tt.area, tt.zip))
		})
	}
}

func TestSubscriptionsSurviveRestart(t *testing.T) {
	subs, store := newSubs(t)
	subs.Add(models.SubscriptionArea, "Mitte")

	reloaded := NewSubscriptionService(store, zap.NewNop().Sugar())
	require.Len(t, reloaded.List(), 1)
	assert.True(t, reloaded.Match("Mitte", ""))
}
