package main

import "github.com/KaramelBytes/qualitylens/cmd"

func main() {
	cmd.Execute()
}
