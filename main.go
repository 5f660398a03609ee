package main

import "insitegent/cmd"

func main() {
	cmd.Execute()
}
