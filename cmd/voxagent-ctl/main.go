package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"voxagent/internal/ipc"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: voxagent-ctl [--socket path] reload | switch [agent] | status")
	os.Exit(2)
}

func main() {
	socket := cli.String("socket", ipc.DefaultSocketPath, "Control socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		usage()
	}

	msg := ipc.ControlMessage{Cmd: args[0]}
	if len(args) > 1 {
		msg.Arg = args[1]
	}

	resp, err := ipc.Send(*socket, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "voxagentd not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, resp.Message)
		os.Exit(1)
	}
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
}
