package main

import "github.com/bedrock-tools/bedrockmon/internal/cli"

func main() {
	cli.Execute()
}
