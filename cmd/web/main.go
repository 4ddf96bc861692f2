package main

import "leadforge_backend/internal/app"

func main() {
	app.Run()
}
