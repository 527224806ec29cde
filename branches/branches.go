// Package branches is the mock catalog served behind authentication: a fixed
// list of branches and a random SIM card availability counter.
package branches

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

type (
	Branch struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	// Table is an ordered, read-only list of branches
	Table struct {
		list []Branch
		byID map[int]int
	}

	BranchNotFound struct {
		ID  int
		Min int
		Max int
	}

	DuplicateBranch struct {
		ID int
	}

	SimCards struct {
		sync.Mutex
		src *rand.Rand
	}
)

const (
	MinSimCards = 20000
	MaxSimCards = 100000
)

var (
	ErrEmptyTable = errors.New("branches: table must have at least one branch")
)

func (b BranchNotFound) Error() string {
	return fmt.Sprintf("Филиал с ID %v не найден. Доступные филиалы: %v-%v", b.ID, b.Min, b.Max)
}

func (d DuplicateBranch) Error() string {
	return fmt.Sprintf("branches: id %v used more than once", d.ID)
}

func DefaultTable() *Table {
	t, _ := NewTable([]Branch{
		{ID: 1, Name: "Филиал МРМ"},
		{ID: 2, Name: "Филиал СЗ"},
		{ID: 3, Name: "Филиал Сибирь"},
		{ID: 4, Name: "Филиал ПВ"},
		{ID: 5, Name: "Филиал Юг"},
	})
	return t
}

func NewTable(list []Branch) (*Table, error) {
	if len(list) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{
		list: append([]Branch(nil), list...),
		byID: make(map[int]int, len(list)),
	}
	for i, b := range t.list {
		if _, dup := t.byID[b.ID]; dup {
			return nil, DuplicateBranch{ID: b.ID}
		}
		t.byID[b.ID] = i
	}
	return t, nil
}

// List returns a copy of the table in its configured order
func (t *Table) List() []Branch {
	return append([]Branch(nil), t.list...)
}

func (t *Table) Lookup(id int) (Branch, error) {
	idx, ok := t.byID[id]
	if !ok {
		lo, hi := t.bounds()
		return Branch{}, BranchNotFound{ID: id, Min: lo, Max: hi}
	}
	return t.list[idx], nil
}

func (t *Table) bounds() (int, int) {
	lo, hi := t.list[0].ID, t.list[0].ID
	for _, b := range t.list[1:] {
		if b.ID < lo {
			lo = b.ID
		}
		if b.ID > hi {
			hi = b.ID
		}
	}
	return lo, hi
}

// NewSimCards uses src to generate availability numbers, a nil src picks a
// randomly seeded one.
func NewSimCards(src rand.Source) *SimCards {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &SimCards{src: rand.New(src)}
}

// Available returns a fresh number in [MinSimCards, MaxSimCards] on every call
func (s *SimCards) Available() int {
	s.Lock()
	defer s.Unlock()
	return MinSimCards + s.src.IntN(MaxSimCards-MinSimCards+1)
}
