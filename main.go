package main

import "github.com/KaramelBytes/sweepq/cmd"

func main() {
	cmd.Execute()
}
