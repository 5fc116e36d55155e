package main

import "github.com/lorios22/twitter-news-classifier/internal/cmd"

func main() {
	cmd.Execute()
}
