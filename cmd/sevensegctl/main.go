package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/hwforge/sevenseg/internal/node"
)

func main() {
	var nodePath string
	var pattern string
	var toggles string
	flag.StringVar(&nodePath, "node", "/run/sevenseg/sevenseg", "path to the device node")
	flag.StringVar(&pattern, "write", "", "segment pattern to write, e.g. 1010110")
	flag.StringVar(&toggles, "toggle", "", "comma-separated segment positions to flip, 0=A .. 6=G")
	flag.Parse()

	if pattern != "" && toggles != "" {
		log.Fatal("use either -write or -toggle, not both")
	}

	var state []byte
	var err error
	switch {
	case toggles != "":
		var positions []int
		for _, f := range strings.Split(toggles, ",") {
			pos, perr := strconv.Atoi(strings.TrimSpace(f))
			if perr != nil {
				log.Fatalf("bad segment position %q", f)
			}
			positions = append(positions, pos)
		}
		state, err = node.Toggle(nodePath, positions)
	default:
		// A bare invocation just reads; -write sets the pattern first.
		state, err = node.Exchange(nodePath, []byte(pattern))
	}
	if err != nil {
		log.Fatalf("device: %v", err)
	}
	fmt.Println(string(state))
}
