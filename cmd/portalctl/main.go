// Command portalctl drives the kelurahan portal from a terminal: citizen submissions, status
// lookups and the staff request console.
package main

import (
	"os"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		a.printError(err)
		os.Exit(1)
	}
}
