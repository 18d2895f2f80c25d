package main

import (
	"fmt"
	"os"
	"time"
)

// logger writes timestamped lines to STDERR when true
type logger bool

func (l logger) Logf(format string, a ...interface{}) {
	if !l {
		return
	}
	fmt.Fprintf(os.Stderr, "%s ", time.Now().Format(time.RFC3339))
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintln(os.Stderr, "")
}
