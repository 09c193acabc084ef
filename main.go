package main

import "docrag/cmd"

func main() {
	cmd.Execute()
}
