package chart

import "sync"

// Board owns the current chart of every tab. Rendering a tab destroys the
// chart it replaces so repeated renders never accumulate instances.
type Board struct {
	mu     sync.Mutex
	charts map[Tab]*Chart
}

// NewBoard returns an empty Board.
func NewBoard() *Board {
	return &Board{charts: make(map[Tab]*Chart)}
}

// Render destroys the tab's current chart, if any, and stores the one build
// returns. The caller gets a snapshot of the stored chart, so a later render
// of the same tab never empties it. If build fails the tab is left empty.
func (b *Board) Render(tab Tab, build func() (*Chart, error)) (*Chart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.charts[tab]; ok {
		old.Destroy()
		delete(b.charts, tab)
	}
	c, err := build()
	if err != nil {
		return nil, err
	}
	b.charts[tab] = c
	return c.Snapshot(), nil
}

// current returns the tab's live chart.
func (b *Board) current(tab Tab) (*Chart, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.charts[tab]
	return c, ok
}

// Clear destroys the charts of tabs.
func (b *Board) Clear(tabs ...Tab) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tab := range tabs {
		if old, ok := b.charts[tab]; ok {
			old.Destroy()
			delete(b.charts, tab)
		}
	}
}
