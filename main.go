package main

import "ollamachat/internal/cli"

func main() {
	cli.Execute()
}
