package main

import "pantry-matcher/internal/cli"

func main() {
	cli.Execute()
}
