package main

import "github.com/ogulcanaydogan/usagewatch/internal/cli"

func main() {
	cli.Execute()
}
