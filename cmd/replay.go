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
	"io"
	"os"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/spf13/cobra"

	"github.com/packetd/secscodec/internal/zerocopy"
	"github.com/packetd/secscodec/logger"
	"github.com/packetd/secscodec/protocol/psecs"
)

const replayChunkSize = 512

type replayConfig struct {
	PCAP string
	Port int
}

var replayCfg replayConfig

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Feed one TCP stream's payload bytes from a pcap capture into the decoder",
	Example: "  secscodec replay --pcap session.pcap\n" +
		"  secscodec replay --pcap session.pcap --port 5000",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(replayCfg.PCAP)
		if err != nil {
			return fmt.Errorf("open %s: %w", replayCfg.PCAP, err)
		}
		defer f.Close()

		reader, err := pcapgo.NewReader(f)
		if err != nil {
			return fmt.Errorf("parse pcap header: %w", err)
		}

		d := psecs.NewDecoder(
			func(h psecs.MessageHeader) { fmt.Println(psecs.SecsMessage{Header: h}.String()) },
			func(m psecs.SecsMessage) { fmt.Println(m.String()) },
			decoderOptions()...,
		)
		defer d.Close()

		src := gopacket.NewPacketSource(reader, reader.LinkType())
		var framesFed int
		for packet := range src.Packets() {
			tcpLayer := packet.Layer(layers.LayerTypeTCP)
			if tcpLayer == nil {
				continue
			}
			tcp, _ := tcpLayer.(*layers.TCP)
			if tcp == nil || len(tcp.Payload) == 0 {
				continue
			}
			if replayCfg.Port != 0 && int(tcp.SrcPort) != replayCfg.Port && int(tcp.DstPort) != replayCfg.Port {
				continue
			}

			if err := feedPayload(cmd, d, tcp.Payload); err != nil {
				return fmt.Errorf("decode payload from %s:%d -> %s:%d: %w", tcp.SrcPort, tcp.SrcPort, tcp.DstPort, tcp.DstPort, err)
			}
			framesFed++
		}
		logger.Infof("replay: fed payload from %d TCP segments", framesFed)
		return nil
	},
}

// feedPayload drains payload through a zerocopy.Buffer in fixed-size
// chunks, handing each chunk to the decoder in turn - the same shape a
// live net.Conn read loop would use, just sourced from a capture instead
// of a socket.
func feedPayload(cmd *cobra.Command, d *psecs.Decoder, payload []byte) error {
	buf := zerocopy.NewBuffer(payload)
	defer buf.Close()

	for {
		chunk, err := buf.Read(replayChunkSize)
		if err == io.EOF {
			return nil
		}
		dst := d.BufferWriteSlice(len(chunk))
		n := copy(dst, chunk)
		if _, err := d.Decode(cmd.Context(), n); err != nil {
			return err
		}
	}
}

func init() {
	replayCmd.Flags().StringVar(&replayCfg.PCAP, "pcap", "", "Path to a pcap capture (required)")
	replayCmd.Flags().IntVar(&replayCfg.Port, "port", 0, "Only replay TCP segments touching this port (0 replays everything)")
	_ = replayCmd.MarkFlagRequired("pcap")
	rootCmd.AddCommand(replayCmd)
}
