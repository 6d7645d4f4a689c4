package main

import "axle-upload/internal/app"

func main() {
	app.Run()
}
