package main

import "chandir/cmd/chandir/cmd"

func main() {
	cmd.Execute()
}
