package main

import "github.com/reloquent/parity/cmd"

func main() {
	cmd.Execute()
}
