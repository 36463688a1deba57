// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/golang/snappy"
	"github.com/spf13/cobra"

	"github.com/packetd/secscodec/internal/bufbytes"
	"github.com/packetd/secscodec/protocol/psecs"
)

type dumpConfig struct {
	File         string
	JSON         bool
	PreviewBytes int
	Archive      string
}

var dumpCfg dumpConfig

// dumpMessage is the JSON-mode rendering of one decoded frame. Text mode
// uses SecsMessage.String() directly instead.
type dumpMessage struct {
	Summary string `json:"summary"`
	Tree    string `json:"tree,omitempty"`
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Decode a raw SECS-II/HSMS byte stream captured to a file",
	Example: "  secscodec dump --file session.bin\n" +
		"  secscodec dump --file session.bin --json\n" +
		"  secscodec dump --file session.bin --archive session.bin.sz",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(dumpCfg.File)
		if err != nil {
			return fmt.Errorf("read %s: %w", dumpCfg.File, err)
		}

		if dumpCfg.Archive != "" {
			if err := os.WriteFile(dumpCfg.Archive, snappy.Encode(nil, raw), 0o644); err != nil {
				return fmt.Errorf("write archive %s: %w", dumpCfg.Archive, err)
			}
		}

		var messages []psecs.SecsMessage
		d := psecs.NewDecoder(
			func(h psecs.MessageHeader) {
				messages = append(messages, psecs.SecsMessage{Header: h})
			},
			func(m psecs.SecsMessage) { messages = append(messages, m) },
			decoderOptions()...,
		)
		defer d.Close()

		remaining := raw
		for len(remaining) > 0 {
			dst := d.BufferWriteSlice(len(remaining))
			n := copy(dst, remaining)
			remaining = remaining[n:]
			if _, err := d.Decode(cmd.Context(), n); err != nil {
				return fmt.Errorf("decode %s: %w", dumpCfg.File, err)
			}
		}

		for _, m := range messages {
			if dumpCfg.JSON {
				out := dumpMessage{Summary: m.HeaderSummary()}
				if m.Root != nil {
					out.Tree = previewText(m.Root.String(), dumpCfg.PreviewBytes)
				}
				b, err := gojson.Marshal(out)
				if err != nil {
					return err
				}
				fmt.Println(string(b))
				continue
			}
			fmt.Println(previewText(m.String(), dumpCfg.PreviewBytes))
		}
		return nil
	},
}

// previewText truncates s to at most n bytes, appending an ellipsis
// marker when it does. n <= 0 disables truncation.
func previewText(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	b := bufbytes.New(n)
	b.Write([]byte(s))
	return b.Text() + "...(truncated)"
}

func init() {
	dumpCmd.Flags().StringVar(&dumpCfg.File, "file", "", "Path to the raw captured byte stream (required)")
	dumpCmd.Flags().BoolVar(&dumpCfg.JSON, "json", false, "Render each frame as a JSON object instead of text")
	dumpCmd.Flags().IntVar(&dumpCfg.PreviewBytes, "preview-bytes", 2048, "Truncate each rendered frame to this many bytes (0 disables)")
	dumpCmd.Flags().StringVar(&dumpCfg.Archive, "archive", "", "Also write a snappy-compressed copy of the input to this path")
	_ = dumpCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(dumpCmd)
}
