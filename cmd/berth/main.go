package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MrSnakeDoc/berth/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ berth: %v\n", err)
		os.Exit(1)
	}
}
