package detection

import "fmt"

// Allocator supplies the detector's scratch buffers once, at construction.
type Allocator interface {
	Alloc(n int) ([]byte, error)
}

// BudgetAllocator hands out heap buffers until a byte budget is spent,
// modelling a fixed external RAM pool.
type BudgetAllocator struct {
	budget int
	used   int
}

// NewBudgetAllocator returns an allocator capped at budget bytes. A budget
// of zero means no cap.
func NewBudgetAllocator(budget int) *BudgetAllocator {
	return &BudgetAllocator{budget: budget}
}

// Alloc returns a zeroed buffer of n bytes or an error if the budget would
// be exceeded.
func (a *BudgetAllocator) Alloc(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid scratch size %d", n)
	}
	if a.budget > 0 && a.used+n > a.budget {
		return nil, fmt.Errorf("requested %d bytes with %d of %d in use", n, a.used, a.budget)
	}
	a.used += n
	return make([]byte, n), nil
}

// Used reports the bytes handed out so far.
func (a *BudgetAllocator) Used() int { return a.used }
