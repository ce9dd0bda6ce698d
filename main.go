package main

import (
	"os"

	"github.com/masslessai/push-cli/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
