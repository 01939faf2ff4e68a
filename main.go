package main

import "github.com/brogergvhs/comicgrab/cmd"

func main() {
	cmd.Execute()
}
