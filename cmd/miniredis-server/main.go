// Command miniredis-server runs a single-node, in-memory key/value server.
package main

import "github.com/BenLin0/miniredis/internal/server"

func main() {
	server.Execute()
}
