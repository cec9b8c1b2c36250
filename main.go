package main

import "github.com/jfmyers9/scrobby/cmd"

func main() {
	cmd.Execute()
}
