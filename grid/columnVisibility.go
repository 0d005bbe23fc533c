package grid

// ColumnVisibility tracks which columns are rendered. It never touches the
// data pipeline: a hidden column still searches, filters and sorts.
type ColumnVisibility struct {
	columns  []ColumnDescriptor
	defaults map[string]bool
	visible  map[string]bool
}

// NewColumnVisibility starts with every column visible except those marked
// Hidden.
func NewColumnVisibility(columns []ColumnDescriptor) *ColumnVisibility {
	v := &ColumnVisibility{
		columns:  columns,
		defaults: map[string]bool{},
	}
	for _, column := range columns {
		if !column.Hidden {
			v.defaults[column.Key] = true
		}
	}
	v.Reset()
	return v
}

// Show makes key visible. Unknown keys are rejected.
func (v *ColumnVisibility) Show(key string) error {
	if _, ok := findColumn(v.columns, key); !ok {
		return ErrUnknownColumn
	}
	v.visible[key] = true
	return nil
}

// Hide removes key from the visible set. Hiding the last column is allowed.
func (v *ColumnVisibility) Hide(key string) error {
	if _, ok := findColumn(v.columns, key); !ok {
		return ErrUnknownColumn
	}
	delete(v.visible, key)
	return nil
}

func (v *ColumnVisibility) ShowAll() {
	for _, column := range v.columns {
		v.visible[column.Key] = true
	}
}

func (v *ColumnVisibility) HideAll() {
	v.visible = map[string]bool{}
}

// Reset restores the default visible set.
func (v *ColumnVisibility) Reset() {
	v.visible = make(map[string]bool, len(v.defaults))
	for key := range v.defaults {
		v.visible[key] = true
	}
}

// ResetTo replaces the visible set with keys. Unknown keys are ignored.
func (v *ColumnVisibility) ResetTo(keys []string) {
	v.visible = make(map[string]bool, len(keys))
	for _, key := range keys {
		if _, ok := findColumn(v.columns, key); ok {
			v.visible[key] = true
		}
	}
}

func (v *ColumnVisibility) IsVisible(key string) bool {
	return v.visible[key]
}

// VisibleKeys returns the visible keys in column order.
func (v *ColumnVisibility) VisibleKeys() []string {
	keys := make([]string, 0, len(v.visible))
	for _, column := range v.columns {
		if v.visible[column.Key] {
			keys = append(keys, column.Key)
		}
	}
	return keys
}

// Visible returns the visible descriptors in column order.
func (v *ColumnVisibility) Visible() []ColumnDescriptor {
	columns := make([]ColumnDescriptor, 0, len(v.visible))
	for _, column := range v.columns {
		if v.visible[column.Key] {
			columns = append(columns, column)
		}
	}
	return columns
}
