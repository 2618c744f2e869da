package main

import "github.com/crane-dl/crane/cmd"

func main() {
	cmd.Execute()
}
