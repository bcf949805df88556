package main

import "github.com/audiolibrelab/fourtrack/cmd"

func main() {
	cmd.Execute()
}
