package models

// Selection is the set of request ids ticked in the admin list. IDs keeps insertion order.
type Selection struct {
	order []int64
	set   map[int64]struct{}
}

// NewSelection returns a selection holding ids.
func NewSelection(ids ...int64) *Selection {
	s := &Selection{set: make(map[int64]struct{})}
	for _, id := range ids {
		s.Select(id)
	}
	return s
}

// Select adds id if absent.
func (s *Selection) Select(id int64) {
	if s.set == nil {
		s.set = make(map[int64]struct{})
	}
	if _, ok := s.set[id]; ok {
		return
	}
	s.set[id] = struct{}{}
	s.order = append(s.order, id)
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id int64) bool {
	if s.Contains(id) {
		s.remove(id)
		return false
	}
	s.Select(id)
	return true
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id int64) bool {
	_, ok := s.set[id]
	return ok
}

// SelectAllVisible selects every visible id, or clears the selection when all of them are already
// selected, mirroring a header checkbox.
func (s *Selection) SelectAllVisible(visible []int64) {
	allSelected := len(visible) > 0
	for _, id := range visible {
		if !s.Contains(id) {
			allSelected = false
			break
		}
	}
	if allSelected {
		s.Clear()
		return
	}
	for _, id := range visible {
		s.Select(id)
	}
}

// Retain drops ids that are not in visible.
func (s *Selection) Retain(visible []int64) {
	keep := make(map[int64]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}
	for _, id := range s.IDs() {
		if _, ok := keep[id]; !ok {
			s.remove(id)
		}
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.order = nil
	s.set = make(map[int64]struct{})
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.order)
}

// IDs returns a copy of the selected ids in selection order.
func (s *Selection) IDs() []int64 {
	return append([]int64(nil), s.order...)
}

func (s *Selection) remove(id int64) {
	delete(s.set, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
