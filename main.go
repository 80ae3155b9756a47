package main

import (
	"os"

	"github.com/PatrickBoulton12345/livestreamrepeater/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
