package main

import "snapnet-backend/cmd"

func main() {
	cmd.Run()
}
