package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/logger"
	"lookout/pkg/models"
)

type recordingUpdater struct {
	categories [][]string
}

func (r *recordingUpdater) UpdateCategories(categories []string) {
	r.categories = append(r.categories, categories)
}

func TestConfigUpdateHandlerAppliesCategories(t *testing.T) {
	updater := &recordingUpdater{}
	h := NewConfigUpdateHandler(updater, logger.NopLogger())

	payload, err := json.Marshal(models.ConfigUpdateEvent{
		EventType:  models.EventTypeCategoriesUpdated,
		Action:     models.ActionUpdate,
		Categories: []string{"mention", "assignment"},
		Timestamp:  time.Now(),
		ChangedBy:  "ops",
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), "cfg-1", payload))
	require.Len(t, updater.categories, 1)
	assert.Equal(t, []string{"mention", "assignment"}, updater.categories[0])
}

func TestConfigUpdateHandlerIgnoresOtherEventTypes(t *testing.T) {
	updater := &recordingUpdater{}
	h := NewConfigUpdateHandler(updater, logger.NopLogger())

	payload, err := json.Marshal(models.ConfigUpdateEvent{
		EventType:  "something_else",
		Categories: []string{"mention"},
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), "cfg-1", payload))
	assert.Empty(t, updater.categories)
}

func TestConfigUpdateHandlerIgnoresEmptyCategories(t *testing.T) {
	updater := &recordingUpdater{}
	h := NewConfigUpdateHandler(updater, logger.NopLogger())

	payload, err := json.Marshal(models.ConfigUpdateEvent{
		EventType: models.EventTypeCategoriesUpdated,
		Action:    models.ActionUpdate,
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), "cfg-1", payload))
	assert.Empty(t, updater.categories)
}

func TestConfigUpdateHandlerDropsMalformedPayload(t *testing.T) {
	updater := &recordingUpdater{}
	h := NewConfigUpdateHandler(updater, logger.NopLogger())

	assert.NoError(t, h.Handle(context.Background(), "cfg-1", []byte("not json")))
	assert.Empty(t, updater.categories)
}
