package main

import "github.com/jmehdipour/supplier-risk/cmd"

func main() {
	cmd.Execute()
}
