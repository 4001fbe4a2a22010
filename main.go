package main

import "github.com/Alpaca542/Launch-Hacks-4-sub000/cmd"

func main() {
	cmd.Execute()
}
