package main

import "github.com/example/glovo-scheduler/cmd"

func main() {
	cmd.Execute()
}
