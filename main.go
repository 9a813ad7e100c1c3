package main

import "github.com/matlukowski/readTube-sub000/cmd"

// @title           readTube API
// @version         1.0.0
// @description     Multi-strategy video transcript acquisition: captions, speech recognition and client-assisted fallback with per-caller quotas
// @contact.name    API Support
// @contact.url     https://github.com/matlukowski/readTube
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
