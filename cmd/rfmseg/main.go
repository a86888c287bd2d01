package main

import (
	"rfmseg/cmd/handlers"
	"rfmseg/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
