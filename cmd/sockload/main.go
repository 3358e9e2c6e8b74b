package main

import (
	"sockload/cmd"
)

func main() {
	cmd.Execute()
}
