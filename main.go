package main

import "canopy/explorer/cmd"

func main() {
	cmd.Execute()
}
