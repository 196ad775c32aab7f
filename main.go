package main

import "github.com/iksnae/llm-unify/cmd"

func main() {
	cmd.Execute()
}
