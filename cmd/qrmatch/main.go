package main

import "qrmatch/internal/cli"

func main() {
	cli.Execute()
}
