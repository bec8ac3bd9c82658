package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vee-sh/bssm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "ok. exiting")
			return
		}
		if code, ok := cli.Reported(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
