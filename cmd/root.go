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

// Package cmd implements the secscodec CLI: a thin driver that reads
// bytes from a file, a pcap capture, or a debug HTTP endpoint and feeds
// them through protocol/psecs. It never reimplements HSMS session state;
// it only exercises the codec against real byte sources.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/secscodec/common"
	"github.com/packetd/secscodec/confengine"
	"github.com/packetd/secscodec/logger"
	"github.com/packetd/secscodec/protocol/psecs"
)

var configPath string

// decoderCfg is populated from the loaded config's "decoder" section (or
// left at its DefaultDecoderConfig value if no config was loaded, or the
// section is absent). Subcommands that build a psecs.Decoder read it via
// decoderOptions.
var decoderCfg = common.DefaultDecoderConfig()

var rootCmd = &cobra.Command{
	Use:   "secscodec",
	Short: "Inspect and replay SECS-II/HSMS byte streams",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configPath == "" {
			return
		}
		cfg, err := confengine.LoadConfigPath(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config (%s): %v\n", configPath, err)
			os.Exit(1)
		}

		var opt logger.Options
		if err := cfg.UnpackChild("logger", &opt); err == nil {
			logger.SetOptions(opt)
		}
		if err := cfg.UnpackChild("decoder", &decoderCfg); err != nil {
			logger.Debugf("no decoder config section (%v), using defaults", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional YAML config file (logger/decoder sections)")
}

// decoderOptions turns decoderCfg into the psecs.Option list every
// subcommand that builds a Decoder should apply.
func decoderOptions() []psecs.Option {
	return []psecs.Option{psecs.WithInitialBufferBytes(decoderCfg.InitialBufferBytes)}
}

// Execute runs the root command; called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
