// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command loomdbg runs the debugger coordinator: it mediates between one
// Agent peer and at most one UI peer over two independent websocket
// listeners.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teradata-labs/loomdbg/internal/agentsession"
	"github.com/teradata-labs/loomdbg/internal/codec"
	"github.com/teradata-labs/loomdbg/internal/config"
	"github.com/teradata-labs/loomdbg/internal/coordinator"
	"github.com/teradata-labs/loomdbg/internal/log"
	"github.com/teradata-labs/loomdbg/internal/runlog"
	"github.com/teradata-labs/loomdbg/internal/summarizer"
	"github.com/teradata-labs/loomdbg/internal/uisession"
	"github.com/teradata-labs/loomdbg/internal/versiongate"
)

var cli config.CLIOverrides
var configFile string

var rootCmd = &cobra.Command{
	Use:     "loomdbg",
	Short:   "Interactive step-debugger coordinator for LLM-driven agent programs",
	Version: versiongate.ServerVersion,
	RunE:    run,
}

func init() {
	_ = godotenv.Load()

	flags := rootCmd.Flags()
	flags.StringVar(&cli.Host, "host", "", "host to bind the agent and UI listeners on")
	flags.IntVar(&cli.ClientPort, "client-port", 0, "port the agent connects to")
	flags.IntVar(&cli.UIPort, "ui-port", 0, "port the UI connects to")
	flags.StringVarP(&configFile, "config", "c", "", "INI config file ([debugger]/[server]/DEFAULT)")
	flags.StringArrayVarP(&cli.Runs, "runs", "r", nil, "run blob file(s) to preload into history")
	flags.StringVar(&cli.Model, "model", "", "summarizer model name")

	// Bound so CLIOverrides.*Set below reflects "did the user actually pass
	// this flag" (viper.IsSet) rather than cobra's own zero-value flags.
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	cli.HostSet = viper.IsSet("host")
	cli.ClientPortSet = viper.IsSet("client-port")
	cli.UIPortSet = viper.IsSet("ui-port")
	cli.ModelSet = viper.IsSet("model")

	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.LoadFile(configFile, cfg)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}
	cfg = config.MergeCLI(cfg, cli)

	logger, _ := zap.NewProduction()
	log.SetLogger(logger)
	defer log.Sync()

	sum := buildSummarizer(cfg.Model)
	coord := coordinator.New(sum, runlog.New("logs"))

	for _, path := range cfg.Runs {
		if err := preloadRun(coord, path); err != nil {
			log.Warn("failed to preload run", zap.String("path", path), zap.Error(err))
		}
	}

	agentSrv := newServer(cfg.Host, cfg.ClientPort, agentHandler(coord))
	uiSrv := newServer(cfg.Host, cfg.UIPort, uiHandler(coord))

	var g errgroup.Group
	g.Go(func() error { return listen(agentSrv) })
	g.Go(func() error { return listen(uiSrv) })

	log.Info("loomdbg coordinator listening",
		zap.String("host", cfg.Host), zap.Int("client_port", cfg.ClientPort), zap.Int("ui_port", cfg.UIPort))

	errch := make(chan error, 1)
	go func() { errch <- g.Wait() }()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errch:
		return err
	case <-sigch:
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = agentSrv.Shutdown(shutdownCtx)
	_ = uiSrv.Shutdown(shutdownCtx)

	return <-errch
}

func newServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{Addr: fmt.Sprintf("%s:%d", host, port), Handler: handler}
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func buildSummarizer(model string) summarizer.Summarizer {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		log.Info("no ANTHROPIC_API_KEY set, summaries disabled")
		return summarizer.NoopSummarizer{}
	}
	return summarizer.NewAnthropicSummarizer(apiKey, model, 0)
}

func preloadRun(coord *coordinator.Coordinator, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	run, err := codec.RunFromBytes(data)
	if err != nil {
		return err
	}
	coord.PreloadRun(run)
	return nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func agentHandler(coord *coordinator.Coordinator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("agent websocket upgrade failed", zap.Error(err))
			return
		}
		sess, err := agentsession.New(conn, coord)
		if err != nil {
			log.Warn("agent connection refused", zap.Error(err))
			_ = conn.Close()
			return
		}
		go func() {
			if err := sess.Serve(context.Background()); err != nil {
				log.Warn("agent session ended", zap.Error(err))
			}
			_ = conn.Close()
		}()
	})
	return mux
}

func uiHandler(coord *coordinator.Coordinator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("UI websocket upgrade failed", zap.Error(err))
			return
		}
		sess, err := uisession.New(conn, coord)
		if err != nil {
			log.Warn("UI connection refused", zap.Error(err))
			_ = conn.Close()
			return
		}
		go func() {
			if err := sess.Serve(); err != nil {
				log.Warn("UI session ended", zap.Error(err))
			}
			_ = conn.Close()
		}()
	})
	return mux
}
