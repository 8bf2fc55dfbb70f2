package main

import "releve/internal/cli"

func main() {
	cli.Execute()
}
