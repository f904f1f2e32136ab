// Command csim replays a memory trace through a set-associative cache and
// reports its hits, misses and evictions.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/csim/csim/cmd"
)

func main() {
	atexit.Exit(cmd.Execute())
}
