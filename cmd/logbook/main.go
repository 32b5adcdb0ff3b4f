// Command logbook is a terminal client for the driver logbook API.
package main

import (
	"bufio"
	"fmt"
	"os"

	"driver_logbook/internal/config"
)

func main() {
	a := &app{
		cfg:    config.LoadClient(),
		out:    os.Stdout,
		errOut: os.Stderr,
		in:     bufio.NewReader(os.Stdin),
	}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
