package main

import "github.com/mlayerprotocol/go-airdrop/cmd"

func main() {
	cmd.Execute()
}
