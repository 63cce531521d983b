package main

import "github.com/jake-scott/nestctl/cmd"

func main() {
	cmd.Execute()
}
