package apikey

import (
	"sync"

	"go.uber.org/multierr"
)

// fanOut runs every task concurrently to completion and combines their
// errors into one (spec §4.10, §9 "Asynchronous fan-out": "collect
// per-target errors and aggregate into one typed error", translating the
// source's gather(return_exceptions=True)). Unlike errgroup.Group, a
// failing task never cancels or skips the others — every bind/unbind is
// always attempted.
func fanOut(tasks ...func() error) error {
	errs := make([]error, len(tasks))

	var wg sync.WaitGroup

	wg.Add(len(tasks))

	for i, task := range tasks {
		i, task := i, task

		go func() {
			defer wg.Done()

			errs[i] = task()
		}()
	}

	wg.Wait()

	return multierr.Combine(errs...)
}
