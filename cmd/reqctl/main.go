package main

import (
	"context"
	"os"

	"github.com/spf13/afero"
)

func main() {
	cmd := NewRootCommand(afero.NewOsFs(), os.Stdout)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
