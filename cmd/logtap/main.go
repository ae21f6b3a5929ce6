package main

import "github.com/livp123/logtap/cmd/logtap/commands"

func main() {
	commands.Execute()
}
