package main

import "github.com/ValentinKolb/edqs/cmd"

func main() {
	cmd.Execute()
}
