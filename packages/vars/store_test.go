package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	s := NewStore()

	s.Set("token", "abc123")
	v, ok := s.Get("token")
	require.True(t, ok)
	assert.Equal(t, "abc123", v)

	t.Run("overwrite is silent", func(t *testing.T) {
		s.Set("token", "xyz789")
		v, ok := s.Get("token")
		require.True(t, ok)
		assert.Equal(t, "xyz789", v)
	})

	t.Run("missing name", func(t *testing.T) {
		_, ok := s.Get("nope")
		assert.False(t, ok)
	})

	t.Run("empty name ignored", func(t *testing.T) {
		s.Set("", "x")
		_, ok := s.Get("")
		assert.False(t, ok)
	})
}

func TestStore_Delete(t *testing.T) {
	s := NewStore()
	s.Set("a", 1)

	s.Delete("a")
	assert.False(t, s.Has("a"))

	// Deleting an absent name must not panic or fire events.
	fired := 0
	s.OnChange(func(Event) { fired++ })
	s.Delete("a")
	assert.Equal(t, 0, fired)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Set("a", 1)
	s.Set("b", 2)

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestStore_OnChange(t *testing.T) {
	s := NewStore()
	var events []Event
	s.OnChange(func(ev Event) {
		events = append(events, ev)
	})

	s.Set("a", 1)
	s.Delete("a")
	s.Clear()

	require.Len(t, events, 3)
	assert.Equal(t, EventSet, events[0].Type)
	assert.Equal(t, "a", events[0].Name)
	assert.Equal(t, 1, events[0].Value)
	assert.Equal(t, EventDelete, events[1].Type)
	assert.Equal(t, EventClear, events[2].Type)
}

func TestStore_Names(t *testing.T) {
	s := NewStore()
	s.Set("b", 2)
	s.Set("a", 1)
	s.Set("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
}

func TestStore_Clone(t *testing.T) {
	s := NewStore()
	s.Set("a", 1)

	clone := s.Clone()
	clone.Set("b", 2)

	assert.True(t, clone.Has("a"))
	assert.False(t, s.Has("b"), "clone writes must not leak back")
}
