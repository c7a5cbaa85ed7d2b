package main

import "tracktivity/cmd/tt/root"

func main() {
	root.Execute()
}
