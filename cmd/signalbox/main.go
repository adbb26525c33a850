// Signalbox is a voice command interpretation daemon: it turns transcribed
// utterances into validated, executed application commands.
//
// Usage:
//
//	signalbox serve [--config /path/to/signalbox.yaml]
//	signalbox interpret "ich möchte zwei pizza" --user demo --page /menu
package main

import "github.com/nadzzz/signalbox/internal/cmd"

func main() {
	cmd.Execute()
}
