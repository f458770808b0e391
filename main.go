package main

import "github.com/khanhnv2901/pagesentry/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
