package main

import "github.com/mikiSpoko200/computer-networks/cmd/udpull/cmd"

func main() {
	cmd.Execute()
}
