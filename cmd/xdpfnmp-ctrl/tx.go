package main

import (
	"encoding/hex"
	"errors"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/usnistgov/xdpfn/fnmp/fnmpapi"
	"github.com/usnistgov/xdpfn/xdp"
)

func writeCapture(filename string, frames [][]byte) (e error) {
	file, e := os.Create(filename)
	if e != nil {
		return e
	}
	defer func() { e = multierr.Append(e, file.Close()) }()

	w, e := pcapgo.NewNgWriter(file, layers.LinkTypeEthernet)
	if e != nil {
		return e
	}
	now := time.Now()
	for _, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     now,
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if e := w.WritePacket(ci, frame); e != nil {
			return e
		}
	}
	return w.Flush()
}

// captureFrames waits until count frames are captured, or timeout.
func captureFrames(h *fnmpapi.Handle, count int, timeout time.Duration) (frames [][]byte, e error) {
	deadline := time.Now().Add(timeout)
	for len(frames) < count {
		frame, e := h.TxReadFrame(uint32(len(frames)))
		switch {
		case e == nil:
			frames = append(frames, frame.Bytes())
		case !errors.Is(e, xdp.StatusNotFound):
			return frames, e
		case time.Now().After(deadline):
			return frames, nil
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	return frames, nil
}

func init() {
	var pattern, mask, output string
	var count int
	var timeout time.Duration
	defineCommand(&cli.Command{
		Category: "tx",
		Name:     "tx-capture",
		Usage:    "Capture TX frames into a pcapng file, then complete them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "pattern",
				Usage:       "match `HEX` bytes",
				Destination: &pattern,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "mask",
				Usage:       "match mask `HEX` bytes (default all ones)",
				Destination: &mask,
			},
			&cli.IntFlag{
				Name:        "count",
				Value:       1,
				Destination: &count,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Value:       10 * time.Second,
				Destination: &timeout,
			},
			&cli.StringFlag{
				Name:        "output",
				Usage:       "pcapng `file`",
				Value:       "tx.pcapng",
				Destination: &output,
			},
		},
		Action: func(c *cli.Context) error {
			pat, e := hex.DecodeString(pattern)
			if e != nil {
				return e
			}
			var msk []byte
			if mask == "" {
				msk = make([]byte, len(pat))
				for i := range msk {
					msk[i] = 0xFF
				}
			} else if msk, e = hex.DecodeString(mask); e != nil {
				return e
			}

			h, e := openHandle()
			if e != nil {
				return e
			}
			defer h.Close()
			if e := h.TxFilter(pat, msk); e != nil {
				return e
			}

			frames, e := captureFrames(h, count, timeout)
			if e != nil {
				return e
			}
			if e := writeCapture(output, frames); e != nil {
				return e
			}
			printJSON(map[string]any{"captured": len(frames), "output": output})

			for range frames {
				if e := h.TxDequeueFrame(0); e != nil {
					return e
				}
			}
			return h.TxFlush()
		},
	})
}
