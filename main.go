package main

import "github.com/shouni/go-rss-harvester/cmd"

func main() {
	cmd.Execute()
}
