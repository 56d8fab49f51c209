package main

import "github.com/SafeMPC/wallet-bridge/cmd"

func main() {
	cmd.Execute()
}
