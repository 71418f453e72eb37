package main

import (
	"github.com/osinfo-labs/fiscalia/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
