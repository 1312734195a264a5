// riak-search manages Riak search-enabled buckets and queries their indexes
// from the command line.
package main

import (
	"os"

	"github.com/kailas-cloud/riak/cmd/riak-search/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
