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
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/paultag/go-ipmpsc"
)

// benchScenario is the shape of a YAML file passed to bench --config; it
// has no bearing on the library's wire format, only on how the
// illustrative benchmark drives it.
type benchScenario struct {
	Capacity    uint32 `yaml:"capacity"`
	MessageSize int    `yaml:"message_size"`
	Count       int    `yaml:"count"`
}

var benchConfigPath string

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "send/receive a scenario against a temp-file-backed channel and report throughput",
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario := benchScenario{Capacity: 1 << 16, MessageSize: 128, Count: 100_000}
		if benchConfigPath != "" {
			raw, err := os.ReadFile(benchConfigPath)
			if err != nil {
				return err
			}
			if err := yaml.Unmarshal(raw, &scenario); err != nil {
				return err
			}
		}

		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync()

		path, rx, err := ipmpsc.CreateTempReceiver(scenario.Capacity, ipmpsc.WithLogger(logger))
		if err != nil {
			return err
		}
		defer rx.Close()

		tx, err := ipmpsc.OpenSender(path, ipmpsc.WithSenderLogger(logger))
		if err != nil {
			return err
		}
		defer tx.Close()

		return runBench(tx, rx, scenario)
	},
}

func init() {
	benchCmd.Flags().StringVar(&benchConfigPath, "config", "", "YAML scenario file (capacity, message_size, count)")
}

func runBench(tx *ipmpsc.Sender, rx *ipmpsc.Receiver, scenario benchScenario) error {
	payload := make([]byte, scenario.MessageSize)
	rand.Read(payload)

	sendErr := make(chan error, 1)
	go func() {
		for i := 0; i < scenario.Count; i++ {
			if err := tx.Send(payload); err != nil {
				sendErr <- err
				return
			}
		}
		sendErr <- nil
	}()

	start := time.Now()
	for i := 0; i < scenario.Count; i++ {
		if _, err := ipmpsc.Recv[[]byte](rx); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	if err := <-sendErr; err != nil {
		return err
	}

	fmt.Printf("received %d messages of %d bytes in %s (%.0f msg/s)\n",
		scenario.Count, scenario.MessageSize, elapsed, float64(scenario.Count)/elapsed.Seconds())
	return nil
}
