package compute

import (
	"fmt"
	"runtime"
	"sync"
)

// Backend evaluates n independent work items.
type Backend interface {
	Name() string
	Available() bool
	ForEach(n int, fn func(i int))
}

// Select resolves a device name to a backend. An empty name means serial CPU.
func Select(name string) (Backend, error) {
	switch name {
	case "", "cpu":
		return &Serial{}, nil
	case "parallel":
		return NewParallel(runtime.NumCPU()), nil
	default:
		return nil, fmt.Errorf("compute: unknown device %q", name)
	}
}

// Serial evaluates items one at a time on the calling goroutine.
type Serial struct{}

func (s *Serial) Name() string    { return "cpu" }
func (s *Serial) Available() bool { return true }

func (s *Serial) ForEach(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

// Parallel fans items out across a fixed worker pool.
type Parallel struct {
	workers int
}

func NewParallel(workers int) *Parallel {
	if workers < 1 {
		workers = 1
	}
	return &Parallel{workers: workers}
}

func (p *Parallel) Name() string    { return "parallel" }
func (p *Parallel) Available() bool { return true }

func (p *Parallel) ForEach(n int, fn func(i int)) {
	workers := p.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}

		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				fn(i)
			}
		}(start, end)
	}

	wg.Wait()
}
