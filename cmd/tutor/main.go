package main

import "llm-tutor/internal/commands"

func main() {
	commands.Execute()
}
