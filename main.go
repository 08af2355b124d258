package main

import "github.com/JA3G3R/reviewcrew/cmd"

func main() {
	cmd.Execute()
}
