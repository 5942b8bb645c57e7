package main

import "go-practice/cmd"

func main() {
	cmd.Execute()
}
