package main

import "qastore/cmd"

func main() {
	cmd.Execute()
}
