package main

import "github.com/Rohith2006/Facial-Recognition/cmd"

func main() {
	cmd.Execute()
}
