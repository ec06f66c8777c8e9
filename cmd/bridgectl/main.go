// Command bridgectl is a small diagnostic CLI for bridged: it reads the
// daemon's on-disk status snapshot, and can send a single MQTT request
// against a running daemon and print whatever comes back on the response
// topic. It talks to the broker directly with paho.golang's low-level
// client rather than mqttbridge.Client, since it makes one request and
// exits instead of holding a supervised, reconnecting connection.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	switch args[0] {
	case "status":
		return runStatus(args[1:])
	case "send":
		return runSend(args[1:])
	case "-h", "-help", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "bridgectl: unknown subcommand %q\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  bridgectl status [-file path]
  bridgectl send -broker host:port -topic T [-payload P] [-wait response-topic] [-timeout 5s]`)
}
