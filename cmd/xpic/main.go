package main

import (
	"os"

	"github.com/bryanchriswhite/xpic/cmd/xpic/commands"
)

func main() {
	// Child toolkits inherit this; xpic only speaks X11.
	os.Setenv("GDK_BACKEND", "x11")
	commands.Execute()
}
