package main

import "mcpreg/internal/cli"

func main() {
	cli.Execute()
}
