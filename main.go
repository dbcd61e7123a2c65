// Command evoprobe instruments Go packages for search-based test generation.
package main

import "github.com/mouse-blink/evoprobe/cmd"

func main() {
	cmd.Execute()
}
