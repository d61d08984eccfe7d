// {{{ Copyright (c) Paul R. Tagliamonte <paultag@gmail.com> 2020-2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/paultag/go-ipmpsc"
)

var recvTimeout time.Duration

var recvCmd = &cobra.Command{
	Use:   "recv <path>",
	Short: "receive messages and print them to stdout, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rx, err := ipmpsc.CreateReceiver(args[0], 1<<20)
		if err != nil {
			return err
		}
		defer rx.Close()

		for {
			if recvTimeout > 0 {
				line, ok, err := ipmpsc.RecvTimeout[string](rx, recvTimeout)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("(timed out)")
					continue
				}
				fmt.Println(line)
				continue
			}

			line, err := ipmpsc.Recv[string](rx)
			if err != nil {
				return err
			}
			fmt.Println(line)
		}
	},
}

func init() {
	recvCmd.Flags().DurationVar(&recvTimeout, "timeout", 0, "per-message receive timeout (0 = block indefinitely)")
}
