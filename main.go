package main

import (
	"context"
	"os"

	"github.com/omar16100/parsnip/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
