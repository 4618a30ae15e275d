package main

import "github.com/shouni/go-x-scraper/cmd"

func main() {
	cmd.Execute()
}
