package main

import "github.com/theirongolddev/aforos/cmd"

func main() {
	cmd.Execute()
}
