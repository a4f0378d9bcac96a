package main

import "github.com/estoque-gate/estoquegate/cmd/estoque-gate/cmd"

func main() {
	cmd.Execute()
}
