package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionTracker(t *testing.T) {
	t.Run("Toggle adds and removes keys", func(t *testing.T) {
		s := NewSelectionTracker(SelectionCheckbox)
		s.Toggle("a")
		s.Toggle("b")
		assert.Equal(t, []string{"a", "b"}, s.SelectedKeys())

		s.Toggle("a")
		assert.Equal(t, []string{"b"}, s.SelectedKeys())
		assert.False(t, s.IsSelected("a"))
	})

	t.Run("Radio mode keeps at most one key", func(t *testing.T) {
		s := NewSelectionTracker(SelectionRadio)
		s.Toggle("3")
		s.Toggle("5")
		assert.Equal(t, []string{"5"}, s.SelectedKeys())

		s.Toggle("5")
		assert.Empty(t, s.SelectedKeys())
	})

	t.Run("Radio select all keeps the first key", func(t *testing.T) {
		s := NewSelectionTracker(SelectionRadio)
		s.Toggle("x")
		s.SelectAll([]string{"1", "2", "3"})
		assert.Equal(t, []string{"1"}, s.SelectedKeys())
	})

	t.Run("Select all is a union with the existing selection", func(t *testing.T) {
		s := NewSelectionTracker(SelectionCheckbox)
		s.Toggle("z")
		s.SelectAll([]string{"a", "b", "z"})
		assert.Equal(t, []string{"z", "a", "b"}, s.SelectedKeys())
	})

	t.Run("Toggle all deselects a fully selected page", func(t *testing.T) {
		s := NewSelectionTracker(SelectionCheckbox)
		s.Toggle("other")
		s.ToggleAll([]string{"a", "b"})
		assert.True(t, s.AllSelected([]string{"a", "b"}))

		s.ToggleAll([]string{"a", "b"})
		assert.Equal(t, []string{"other"}, s.SelectedKeys())
	})

	t.Run("Retain drops keys outside the given set", func(t *testing.T) {
		s := NewSelectionTracker(SelectionCheckbox)
		s.SelectAll([]string{"a", "b", "c"})
		s.Retain(map[string]struct{}{"a": {}, "c": {}})
		assert.Equal(t, []string{"a", "c"}, s.SelectedKeys())
		assert.True(t, s.IsSelected("c"))
		assert.False(t, s.IsSelected("b"))
	})

	t.Run("Selected keys are a copy", func(t *testing.T) {
		s := NewSelectionTracker(SelectionCheckbox)
		s.Toggle("a")
		keys := s.SelectedKeys()
		keys[0] = "changed"
		assert.Equal(t, []string{"a"}, s.SelectedKeys())
	})

	t.Run("Unknown mode falls back to checkbox", func(t *testing.T) {
		s := NewSelectionTracker(SelectionMode("multi"))
		assert.Equal(t, SelectionCheckbox, s.Mode())
		assert.Equal(t, SelectionState{SelectedKeys: []string{}, Mode: SelectionCheckbox}, s.State())
	})
}
