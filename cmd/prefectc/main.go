package main

import "github.com/flowforge/prefectc/pkg/prefectc/cli"

func main() {
	cli.Execute()
}
