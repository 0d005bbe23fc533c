package grid

// SelectionMode is checkbox (many rows) or radio (at most one row).
type SelectionMode string

const (
	SelectionCheckbox SelectionMode = "checkbox"
	SelectionRadio    SelectionMode = "radio"
)

// SelectionState is a snapshot of a tracker.
type SelectionState struct {
	SelectedKeys []string      `json:"selected_keys"`
	Mode         SelectionMode `json:"mode"`
}

// SelectionTracker holds the selected row keys in selection order.
// In radio mode it never holds more than one key.
type SelectionTracker struct {
	mode  SelectionMode
	keys  []string
	index map[string]int
}

// NewSelectionTracker creates an empty tracker. Unknown modes fall back to
// checkbox.
func NewSelectionTracker(mode SelectionMode) *SelectionTracker {
	if mode != SelectionRadio {
		mode = SelectionCheckbox
	}
	return &SelectionTracker{
		mode:  mode,
		index: map[string]int{},
	}
}

func (s *SelectionTracker) Mode() SelectionMode {
	return s.mode
}

// Toggle removes key if selected and adds it otherwise. In radio mode adding
// replaces the current selection.
func (s *SelectionTracker) Toggle(key string) {
	if s.IsSelected(key) {
		s.remove(key)
		return
	}
	if s.mode == SelectionRadio {
		s.Clear()
	}
	s.add(key)
}

// SelectAll adds keys to the selection. Callers pass the keys of the rows on
// the current page only. In radio mode the selection is replaced by the
// first key.
func (s *SelectionTracker) SelectAll(keys []string) {
	if s.mode == SelectionRadio {
		s.Clear()
		if len(keys) > 0 {
			s.add(keys[0])
		}
		return
	}
	for _, key := range keys {
		s.add(key)
	}
}

// DeselectAll removes keys from the selection.
func (s *SelectionTracker) DeselectAll(keys []string) {
	for _, key := range keys {
		s.remove(key)
	}
}

// ToggleAll deselects keys when all of them are selected and selects them
// otherwise, like a header checkbox.
func (s *SelectionTracker) ToggleAll(keys []string) {
	if len(keys) > 0 && s.AllSelected(keys) {
		s.DeselectAll(keys)
		return
	}
	s.SelectAll(keys)
}

// AllSelected reports whether every key is selected.
func (s *SelectionTracker) AllSelected(keys []string) bool {
	for _, key := range keys {
		if !s.IsSelected(key) {
			return false
		}
	}
	return true
}

func (s *SelectionTracker) Clear() {
	s.keys = nil
	s.index = map[string]int{}
}

// Retain drops every selected key that is not in keep.
func (s *SelectionTracker) Retain(keep map[string]struct{}) {
	kept := s.keys[:0]
	for _, key := range s.keys {
		if _, ok := keep[key]; ok {
			kept = append(kept, key)
		}
	}
	s.keys = kept
	s.reindex()
}

func (s *SelectionTracker) IsSelected(key string) bool {
	_, ok := s.index[key]
	return ok
}

// SelectedKeys returns a copy of the selected keys in selection order.
func (s *SelectionTracker) SelectedKeys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

func (s *SelectionTracker) Len() int {
	return len(s.keys)
}

func (s *SelectionTracker) State() SelectionState {
	return SelectionState{SelectedKeys: s.SelectedKeys(), Mode: s.mode}
}

func (s *SelectionTracker) add(key string) {
	if s.IsSelected(key) {
		return
	}
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
}

func (s *SelectionTracker) remove(key string) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	s.reindex()
}

func (s *SelectionTracker) reindex() {
	s.index = make(map[string]int, len(s.keys))
	for i, key := range s.keys {
		s.index[key] = i
	}
}
