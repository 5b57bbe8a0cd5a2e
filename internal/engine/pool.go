package engine

import (
	"iter"
	"strings"

	"golang.org/x/text/cases"
)

// Item is a single draftable entry in the pool.
type Item struct {
	Name  string `json:"name"`
	Side  string `json:"side,omitempty"`
	Taken bool   `json:"taken"`
}

// SideGroup is one labelled partition of a pool as supplied to SetSides.
type SideGroup struct {
	Side  string   `json:"side"`
	Items []string `json:"items"`
}

// Pool owns the draftable items. Items keep the order they were supplied in;
// when sides are used, every side's items are contiguous.
type Pool struct {
	items  []Item
	index  map[string]int // folded name -> position in items
	sides  []string
	taken  int
	locked bool
}

func NewPool() *Pool {
	return &Pool{index: map[string]int{}}
}

// foldName is the comparison key for item names: Unicode case folded with
// runs of whitespace collapsed.
func foldName(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// Set replaces the pool with an ungrouped list of names.
func (p *Pool) Set(names []string) error {
	return p.SetSides([]SideGroup{{Items: names}})
}

// SetSides replaces the pool with grouped names. A single group with an empty
// side label is an ungrouped pool.
func (p *Pool) SetSides(groups []SideGroup) error {
	if p.locked {
		return newError(KindInvalidState, "the pool cannot change once the draft has begun")
	}

	items := make([]Item, 0)
	index := map[string]int{}
	var sides []string
	for _, g := range groups {
		side := strings.TrimSpace(g.Side)
		added := false
		for _, raw := range g.Items {
			name := strings.Join(strings.Fields(raw), " ")
			if name == "" {
				continue
			}
			key := foldName(name)
			if _, dup := index[key]; dup {
				e := newError(KindDuplicateItem, "duplicate item: %s", name)
				e.Candidates = []string{name}
				return e
			}
			index[key] = len(items)
			items = append(items, Item{Name: name, Side: side})
			added = true
		}
		if added && side != "" {
			sides = append(sides, side)
		}
	}
	if len(items) == 0 {
		return newError(KindInvalidArgument, "the pool needs at least one item")
	}

	p.items = items
	p.index = index
	p.sides = sides
	p.taken = 0
	return nil
}

// Lock freezes the pool contents; called when the draft begins.
func (p *Pool) Lock() { p.locked = true }

func (p *Pool) Size() int      { return len(p.items) }
func (p *Pool) Taken() int     { return p.taken }
func (p *Pool) Available() int { return len(p.items) - p.taken }

// Sides returns side labels in the order they were supplied, or nil for an
// ungrouped pool.
func (p *Pool) Sides() []string {
	return append([]string(nil), p.sides...)
}

// FindMatch resolves free text to one available item. An exact (folded) name
// wins outright; otherwise every available item containing the text is a
// candidate and exactly one candidate is required.
func (p *Pool) FindMatch(text string) (Item, error) {
	key := foldName(text)
	if key == "" {
		return Item{}, newError(KindNoMatch, "say which item you want")
	}
	if i, ok := p.index[key]; ok && !p.items[i].Taken {
		return p.items[i], nil
	}

	var candidates []Item
	for _, it := range p.items {
		if it.Taken {
			continue
		}
		if strings.Contains(foldName(it.Name), key) {
			candidates = append(candidates, it)
		}
	}

	switch len(candidates) {
	case 0:
		return Item{}, newError(KindNoMatch, "no available item matches %q", strings.TrimSpace(text))
	case 1:
		return candidates[0], nil
	default:
		e := newError(KindAmbiguousMatch, "%q matches %d items, be more specific", strings.TrimSpace(text), len(candidates))
		for _, c := range candidates {
			e.Candidates = append(e.Candidates, c.Name)
		}
		return Item{}, e
	}
}

// Take marks the named item as drafted.
func (p *Pool) Take(name string) (Item, error) {
	i, ok := p.index[foldName(name)]
	if !ok {
		return Item{}, newError(KindNoMatch, "%s is not in the pool", name)
	}
	if p.items[i].Taken {
		return Item{}, newError(KindAlreadyTaken, "%s has already been drafted", p.items[i].Name)
	}
	p.items[i].Taken = true
	p.taken++
	return p.items[i], nil
}

// First returns the first available item in pool order.
func (p *Pool) First() (Item, bool) {
	for it := range p.Remaining() {
		return it, true
	}
	return Item{}, false
}

// Remaining yields available items in pool order. The sequence reads the
// pool lazily, so it must be consumed under the same exclusive access that
// guards mutation.
func (p *Pool) Remaining() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range p.items {
			if it.Taken {
				continue
			}
			if !yield(it) {
				return
			}
		}
	}
}

// RemainingBySide yields (side, available items) for every side with items
// left. An ungrouped pool yields a single group with an empty label.
func (p *Pool) RemainingBySide() iter.Seq2[string, []Item] {
	return func(yield func(string, []Item) bool) {
		labels := p.sides
		if len(labels) == 0 {
			labels = []string{""}
		}
		for _, side := range labels {
			var group []Item
			for it := range p.Remaining() {
				if it.Side == side {
					group = append(group, it)
				}
			}
			if len(group) == 0 {
				continue
			}
			if !yield(side, group) {
				return
			}
		}
	}
}
