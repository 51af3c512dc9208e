package eventkey

import "container/list"

// lruSet is a fixed-capacity key -> canonical-string map with
// least-recently-used eviction. Not safe for concurrent use; the
// Generator serializes access.
type lruSet struct {
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key       string
	canonical string
}

func newLRUSet(capacity int) *lruSet {
	return &lruSet{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

func (s *lruSet) Get(key string) (string, bool) {
	el, ok := s.items[key]
	if !ok {
		return "", false
	}
	s.order.MoveToFront(el)
	return el.Value.(*lruEntry).canonical, true
}

func (s *lruSet) Put(key, canonical string) {
	if el, ok := s.items[key]; ok {
		s.order.MoveToFront(el)
		el.Value.(*lruEntry).canonical = canonical
		return
	}
	el := s.order.PushFront(&lruEntry{key: key, canonical: canonical})
	s.items[key] = el
	if s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.items, oldest.Value.(*lruEntry).key)
		}
	}
}

func (s *lruSet) Len() int { return s.order.Len() }

func (s *lruSet) Clear() {
	s.order.Init()
	s.items = make(map[string]*list.Element, s.capacity)
}
