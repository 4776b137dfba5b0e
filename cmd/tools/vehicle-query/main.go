// cmd/tools/vehicle-query/main.go
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(connectFromFlags).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
