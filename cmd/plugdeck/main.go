package main

import (
	"fmt"
	"os"
)

func main() {
	app := NewAppContext()
	err := newRootCmd(app).Execute()
	if closeErr := app.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
