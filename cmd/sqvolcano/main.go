// sqvolcano - SafeQuant volcano plot tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/sqvolcano/cmd/sqvolcano/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
