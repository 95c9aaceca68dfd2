package main

import "github.com/KaramelBytes/tablelens-cli/cmd"

func main() {
	cmd.Execute()
}
