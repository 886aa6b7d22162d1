package main

import "github.com/shareaudit/sharescan/cmd"

func main() {
	cmd.Execute()
}
