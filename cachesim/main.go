// Command cachesim simulates set-associative caches driven by memory traces.
package main

import (
	"github.com/sarchlab/cachesim/cachesim/cmd"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	if err == nil {
		defer undo()
	}

	cmd.Execute()
}
