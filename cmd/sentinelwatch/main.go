package main

import "sentinelwatch/internal/cli"

func main() {
	cli.Execute()
}
