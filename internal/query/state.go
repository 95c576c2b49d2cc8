package query

import "sync"

// Filters is the mutable selection shared by a screen's widgets. Changing
// it only notifies listeners; it never touches the ledger.
type Filters struct {
	mu        sync.Mutex
	sel       Selection
	listeners []func(Selection)
}

func NewFilters(initial Selection) *Filters {
	if initial.Type == "" {
		initial.Type = TypeAll
	}
	if initial.Period == "" {
		initial.Period = PeriodAll
	}
	return &Filters{sel: initial}
}

func (f *Filters) Selection() Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sel
}

// OnChange registers fn to run after every effective change.
func (f *Filters) OnChange(fn func(Selection)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *Filters) SetType(t TypeFilter) {
	f.update(func(s *Selection) { s.Type = t })
}

func (f *Filters) SetPeriod(p PeriodFilter) {
	f.update(func(s *Selection) { s.Period = p })
}

func (f *Filters) SetCategory(c string) {
	f.update(func(s *Selection) { s.Category = c })
}

func (f *Filters) update(change func(*Selection)) {
	f.mu.Lock()
	next := f.sel
	change(&next)
	if next == f.sel {
		f.mu.Unlock()
		return
	}
	f.sel = next
	listeners := append([]func(Selection){}, f.listeners...)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}
