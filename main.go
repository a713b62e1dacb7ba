package main

import "github.com/theirongolddev/oafund/cmd"

func main() {
	cmd.Execute()
}
