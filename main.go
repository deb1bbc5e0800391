package main

import "github.com/yz4230/forgehost/cmd"

func main() {
	cmd.Execute()
}
