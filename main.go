package main

import "github.com/moria-tools/moria-manager/cmd"

func main() {
	cmd.Execute()
}
