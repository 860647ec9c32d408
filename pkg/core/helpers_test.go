package core

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
)

type run struct {
	number int
	id     string
	log    []string
	Links[run]
}

func (r *run) links() *Links[run] { return &r.Links }

func numberOf(r *run) int { return r.number }
func idOf(r *run) string  { return r.id }

// fakeSource parses a fresh record on every read, like a directory would.
type fakeSource struct {
	mu        sync.Mutex
	numbers   map[string]int
	broken    map[string]bool
	empty     map[string]bool
	shortcuts map[int]string
	reads     map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		numbers:   make(map[string]int),
		broken:    make(map[string]bool),
		empty:     make(map[string]bool),
		shortcuts: make(map[int]string),
		reads:     make(map[string]int),
	}
}

func (s *fakeSource) add(id string, number int) *fakeSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numbers[id] = number
	return s
}

// addNumbers adds records whose ID is the decimal number.
func (s *fakeSource) addNumbers(numbers ...int) *fakeSource {
	for _, n := range numbers {
		s.add(strconv.Itoa(n), n)
	}
	return s
}

func (s *fakeSource) shortcut(number int, id string) *fakeSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortcuts[number] = id
	return s
}

func (s *fakeSource) breakID(id string) *fakeSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[id] = true
	return s
}

func (s *fakeSource) readsOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[id]
}

func (s *fakeSource) ListIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.numbers {
		ids = append(ids, id)
	}
	for id := range s.broken {
		if _, ok := s.numbers[id]; !ok {
			ids = append(ids, id)
		}
	}
	for id := range s.empty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeSource) ListShortcuts() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ns []int
	for n := range s.shortcuts {
		ns = append(ns, n)
	}
	return ns, nil
}

func (s *fakeSource) Retrieve(id string) (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[id]++
	if s.broken[id] {
		return nil, fmt.Errorf("corrupt record %s", id)
	}
	if s.empty[id] {
		return nil, nil
	}
	n, ok := s.numbers[id]
	if !ok {
		return nil, fmt.Errorf("no directory %s", id)
	}
	return &run{number: n, id: id, log: []string{"parsed"}}, nil
}

func (s *fakeSource) RetrieveShortcut(number int) (*run, error) {
	s.mu.Lock()
	id, ok := s.shortcuts[number]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no shortcut %d", number)
	}
	return s.Retrieve(id)
}

func newTestIndex(t *testing.T, src *fakeSource, opts ...Option) *LazyIndex[run] {
	t.Helper()
	return NewLazyIndex[run](src, numberOf, idOf, opts...)
}

// idFor zero-pads n so ID order matches number order.
func idFor(n int) string {
	return fmt.Sprintf("%04d", n)
}

func numbersOf(rs []*run) []int {
	out := make([]int, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.number)
	}
	return out
}

// collect stands in for the garbage collector clearing the referent of the
// record numbered n.
func collect(idx *LazyIndex[run], n int, id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	s := idx.index.Load().copy()
	s.put(n, &Reference[run]{id: id})
	idx.index.Store(s)
}
