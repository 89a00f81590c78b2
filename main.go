package main

import (
	"os"

	"bpflink/cmd"
)

func main() {
	os.Exit(cmd.RunLinker())
}
