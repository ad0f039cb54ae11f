package main

import "github.com/ssargent/freyjatree/cmd/freyjatree/cmd"

func main() {
	cmd.Execute()
}
