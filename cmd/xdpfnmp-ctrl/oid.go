package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/usnistgov/xdpfn/fnmp"
)

// parseOidKey parses "type:oid", such as "set:0x0001010E".
func parseOidKey(s string) (key fnmp.OidKey, e error) {
	typ, oid, ok := strings.Cut(s, ":")
	if !ok {
		return key, fmt.Errorf("OID key %q must be type:oid", s)
	}
	switch typ {
	case "query":
		key.RequestType = fnmp.RequestQuery
	case "set":
		key.RequestType = fnmp.RequestSet
	default:
		return key, fmt.Errorf("unknown request type %q", typ)
	}
	n, e := strconv.ParseUint(oid, 0, 32)
	if e != nil {
		return key, e
	}
	key.Oid = fnmp.Oid(n)
	return key, nil
}

func printPending(info []byte) {
	printJSON(map[string]any{"length": len(info), "information": hex.EncodeToString(info)})
}

func init() {
	var wait, complete bool
	var timeout time.Duration
	defineCommand(&cli.Command{
		Category: "oid",
		Name:     "oid-filter",
		Usage:    "Install OID filter and hold it until interrupted",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "key",
				Usage:    "filter `type:oid`, repeatable",
				Required: true,
			},
			&cli.BoolFlag{
				Name:        "wait",
				Usage:       "wait for a pended request of the first key and print it",
				Destination: &wait,
			},
			&cli.BoolFlag{
				Name:        "complete",
				Usage:       "complete the pended request after --wait",
				Destination: &complete,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Value:       10 * time.Second,
				Destination: &timeout,
			},
		},
		Action: func(c *cli.Context) error {
			var filter []fnmp.OidKey
			for _, s := range c.StringSlice("key") {
				key, e := parseOidKey(s)
				if e != nil {
					return e
				}
				filter = append(filter, key)
			}

			h, e := openHandle()
			if e != nil {
				return e
			}
			defer h.Close()
			if e := h.OidSetFilter(filter...); e != nil {
				return e
			}
			printJSON(map[string]any{"filter": filter})

			if wait {
				info, e := h.WaitOid(filter[0], timeout)
				if e != nil {
					return e
				}
				printPending(info)
				if complete {
					if e := h.OidCompleteRequest(); e != nil {
						return e
					}
				}
			}

			holdUntilSignal()
			return nil
		},
	})
}

func init() {
	var key string
	var timeout time.Duration
	defineCommand(&cli.Command{
		Category: "oid",
		Name:     "oid-get",
		Usage:    "Print the information buffer of a pended OID request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "key",
				Usage:       "request `type:oid`",
				Destination: &key,
				Required:    true,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "wait for the request to be pended",
				Destination: &timeout,
			},
		},
		Action: func(c *cli.Context) error {
			k, e := parseOidKey(key)
			if e != nil {
				return e
			}
			h, e := openHandle()
			if e != nil {
				return e
			}
			defer h.Close()

			info, e := h.WaitOid(k, timeout)
			if e != nil {
				return e
			}
			printPending(info)
			return nil
		},
	})
}

func init() {
	defineCommand(&cli.Command{
		Category: "oid",
		Name:     "oid-complete",
		Usage:    "Complete the pended OID request",
		Action: func(c *cli.Context) error {
			h, e := openHandle()
			if e != nil {
				return e
			}
			defer h.Close()
			return h.OidCompleteRequest()
		},
	})
}
