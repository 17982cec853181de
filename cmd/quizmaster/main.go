package main

import "quiz-master/internal/cli"

func main() {
	cli.Execute()
}
