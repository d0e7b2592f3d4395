package main

import "github.com/KaramelBytes/darwinprep/cmd"

func main() {
	cmd.Execute()
}
