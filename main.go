package main

import "github.com/bmore/mtgateway/internal/cli"

func main() {
	cli.Execute()
}
