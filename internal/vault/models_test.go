package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusActive.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestAllMilestonesValidated(t *testing.T) {
	t.Run("no milestones never completes", func(t *testing.T) {
		v := &Vault{}
		assert.False(t, v.AllMilestonesValidated())
	})

	t.Run("pending milestone blocks completion", func(t *testing.T) {
		v := &Vault{Milestones: []Milestone{
			{ID: "ms-1", Status: MilestoneValidated},
			{ID: "ms-2", Status: MilestonePending},
		}}
		assert.False(t, v.AllMilestonesValidated())
	})

	t.Run("all validated completes", func(t *testing.T) {
		v := &Vault{Milestones: []Milestone{
			{ID: "ms-1", Status: MilestoneValidated},
			{ID: "ms-2", Status: MilestoneValidated},
		}}
		assert.True(t, v.AllMilestonesValidated())
	})
}

func TestClone(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	original := &Vault{
		ID:     "v-1",
		Status: StatusActive,
		Milestones: []Milestone{
			{ID: "ms-1", Status: MilestonePending},
		},
		History:              []HistoryEntry{{Action: HistoryCreated, OccurredAt: now}},
		DomainEvents:         []DomainEvent{{ID: "e-1", Payload: map[string]string{"k": "v"}}},
		MilestoneValidatedAt: &now,
	}

	clone := original.Clone()
	clone.Status = StatusCancelled
	clone.Milestones[0].Status = MilestoneValidated
	clone.History = append(clone.History, HistoryEntry{Action: HistoryCancelled})
	clone.DomainEvents[0].Payload["k"] = "changed"
	*clone.MilestoneValidatedAt = now.Add(time.Hour)

	assert.Equal(t, StatusActive, original.Status)
	assert.Equal(t, MilestonePending, original.Milestones[0].Status)
	assert.Len(t, original.History, 1)
	assert.Equal(t, "v", original.DomainEvents[0].Payload["k"])
	assert.Equal(t, now, *original.MilestoneValidatedAt)
}
