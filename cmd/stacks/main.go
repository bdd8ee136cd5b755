package main

import "github.com/aweris/stacks/cmd/stacks/cmd"

func main() {
	cmd.Execute()
}
