package main

import "github.com/datarocks/lwgs-searchindex-client/cmd"

func main() {
	cmd.Execute()
}
