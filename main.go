package main

import "taskshare/cmd"

func main() {
	cmd.Execute()
}
