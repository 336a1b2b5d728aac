package main

import "github.com/peter-marien/grindsync/cmd"

func main() {
	cmd.Execute()
}
