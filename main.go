package main

import "github.com/agentic-research/annalist/cmd"

func main() {
	cmd.Execute()
}
