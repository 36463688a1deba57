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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/packetd/secscodec/common"
	"github.com/packetd/secscodec/confengine"
	"github.com/packetd/secscodec/internal/metrics"
	"github.com/packetd/secscodec/internal/sigs"
	"github.com/packetd/secscodec/logger"
	"github.com/packetd/secscodec/protocol/psecs"
	"github.com/packetd/secscodec/server"
)

type serveConfig struct {
	Address string
	Pprof   bool
}

var serveCfg serveConfig

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a debug HTTP server exposing /healthz, /metrics and /decode",
	Example: "  secscodec serve --address :8090\n" +
		"  curl --data-binary @frame.bin http://localhost:8090/decode",
	RunE: func(cmd *cobra.Command, args []string) error {
		yaml := fmt.Sprintf("server:\n  enabled: true\n  address: %q\n  pprof: %v\nlogger:\n  stdout: true\n",
			serveCfg.Address, serveCfg.Pprof)
		cfg, err := confengine.LoadContent([]byte(yaml))
		if err != nil {
			return err
		}

		srv, err := server.New(cfg)
		if err != nil {
			return err
		}
		if srv == nil {
			return fmt.Errorf("server did not start: enabled=false")
		}

		info := common.GetBuildInfo()
		if info.Version == "" {
			info.Version = common.Version
		}
		metrics.BuildInfo.WithLabelValues(info.Version, info.GitHash, info.Time).Set(1)

		srv.RegisterGetRoute("/healthz", handleHealthz)
		srv.RegisterGetRoute("/metrics", promhttp.Handler().ServeHTTP)
		srv.RegisterPostRoute("/decode", handleDecode)

		errCh := make(chan error, 1)
		go func() {
			logger.Infof("serving debug endpoints on %s", serveCfg.Address)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-sigs.Terminate():
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	uptime := time.Now().Unix() - common.Started()
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ok uptime=%ds concurrency=%d\n", uptime, common.Concurrency())
}

// decodeResponse is what POST /decode returns: every frame found in the
// request body, rendered the same way `cmd dump --json` would.
type decodeResponse struct {
	Frames []dumpMessage `json:"frames"`
}

// handleDecode decodes the raw request body as a stream of SECS-II/HSMS
// frames (same wire shape `cmd dump` reads from a file) and returns the
// decoded frames as JSON. A partial trailing frame is silently dropped;
// the endpoint is for one-shot inspection, not a live session.
func handleDecode(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("secscodec/cmd").Start(r.Context(), "handleDecode")
	defer span.End()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var resp decodeResponse
	d := psecs.NewDecoder(
		func(h psecs.MessageHeader) {
			resp.Frames = append(resp.Frames, dumpMessage{Summary: psecs.SecsMessage{Header: h}.HeaderSummary()})
		},
		func(m psecs.SecsMessage) {
			out := dumpMessage{Summary: m.HeaderSummary()}
			if m.Root != nil {
				out.Tree = m.Root.String()
			}
			resp.Frames = append(resp.Frames, out)
		},
		decoderOptions()...,
	)
	defer d.Close()

	remaining := body
	for len(remaining) > 0 {
		dst := d.BufferWriteSlice(len(remaining))
		n := copy(dst, remaining)
		remaining = remaining[n:]
		if _, err := d.Decode(ctx, n); err != nil {
			metrics.DecodeErrors.WithLabelValues("http_decode").Inc()
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	metrics.BufferBytesInUse.Set(float64(d.BufferCap()))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func init() {
	serveCmd.Flags().StringVar(&serveCfg.Address, "address", ":8090", "Listen address for the debug HTTP server")
	serveCmd.Flags().BoolVar(&serveCfg.Pprof, "pprof", false, "Also expose /debug/pprof endpoints")
	rootCmd.AddCommand(serveCmd)
}
