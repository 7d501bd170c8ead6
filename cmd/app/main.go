package main

import (
	"context"
	"fmt"
	"os"

	"github.com/debankfi/debank/web"
)

func main() {
	if err := web.Run(context.Background(), os.Getenv, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
