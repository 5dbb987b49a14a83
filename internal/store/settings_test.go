package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/config"
)

func TestSettings_GetSet(t *testing.T) {
	s := newTestStore(t)
	settings := s.Settings()

	_, err := settings.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, settings.Set("a", "1"))
	require.NoError(t, settings.Set("b", "2"))
	require.NoError(t, settings.Set("a", "3"))

	v, err := settings.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	all, err := settings.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, all)

	require.NoError(t, settings.Delete("a"))
	require.NoError(t, settings.Delete("a"))
	_, err = settings.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Tuning(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Tuning()
	assert.ErrorIs(t, err, ErrNotFound)

	tuning := config.Default().Tuning()
	tuning.Gesture.Pinch = 0.05
	tuning.Motion.Stiffness = 0.2
	tuning.Interaction.ClickCooldown = 300 * time.Millisecond
	require.NoError(t, s.SaveTuning(tuning))

	got, err := s.Tuning()
	require.NoError(t, err)
	assert.Equal(t, tuning, got)
}

func TestStore_SaveTuningRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	tuning := config.Default().Tuning()
	tuning.Motion.Damping = 1.5
	assert.Error(t, s.SaveTuning(tuning))

	_, err := s.Tuning()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_TuningCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Settings().Set(tuningKey, "{not json"))

	_, err := s.Tuning()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
