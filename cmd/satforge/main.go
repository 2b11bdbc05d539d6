package main

import (
	"satforge/internal/cli"
)

func main() {
	cli.Execute()
}
