package main

import "github.com/kastheco/monothematic/cmd"

func main() {
	cmd.Execute()
}
