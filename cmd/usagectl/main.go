// Package main is usagectl, an operator tool to inspect and reset the
// free usage counters of QuickAI users.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(openStore).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
