package main

import (
	cmd "github.com/rohmanhakim/linkmeta/internal/cli"
)

func main() {
	cmd.Execute()
}
