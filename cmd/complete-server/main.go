// Command complete-server is the RPC host a Neovim job spawns over
// stdio: it wires the editor bridge, config store, recency map, commit
// resolver, stock providers and the Coordinator together, then serves
// the session until the editor closes the pipe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"

	"github.com/naripok/complete-coordinator/internal/classifier"
	"github.com/naripok/complete-coordinator/internal/commit"
	"github.com/naripok/complete-coordinator/internal/config"
	"github.com/naripok/complete-coordinator/internal/deviceid"
	"github.com/naripok/complete-coordinator/internal/editorbridge"
	"github.com/naripok/complete-coordinator/internal/engine"
	"github.com/naripok/complete-coordinator/internal/logger"
	"github.com/naripok/complete-coordinator/internal/metrics"
	"github.com/naripok/complete-coordinator/internal/providers/paths"
	"github.com/naripok/complete-coordinator/internal/providers/words"
	"github.com/naripok/complete-coordinator/internal/recency"
	"github.com/naripok/complete-coordinator/internal/types"
)

func main() {
	stateDir := flag.String("state-dir", defaultStateDir(), "directory for logs, config and the device id")
	configPath := flag.String("config", "", "path to the coordinator's YAML config (defaults to <state-dir>/config.yaml)")
	logLevel := flag.String("log-level", "info", "trace|debug|info|warn|error")
	flag.Parse()

	if err := os.MkdirAll(*stateDir, 0o755); err != nil {
		os.Exit(1)
	}

	logFile, err := os.OpenFile(filepath.Join(*stateDir, "complete-coordinator.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		os.Exit(1)
	}
	logger.NewLimitedLogger(logFile, logger.ParseLogLevel(*logLevel))

	id := deviceid.LoadOrCreate(*stateDir)
	logger.Info("complete-coordinator starting, device=%s", id)

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(*stateDir, "config.yaml")
	}
	cfgStore, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("config load failed: %v", err)
	}

	v, err := nvim.New(os.Stdin, os.Stdout, os.Stdout, logger.Debug)
	if err != nil {
		logger.Fatal("nvim session failed: %v", err)
	}

	bridge := editorbridge.New(v)
	rec := recency.New()
	resolver := commit.New(editorbridge.NewFloatingDocs(bridge))

	coord := engine.New(bridge, cfgStore, rec, resolver, nil)
	coord.SetMetricsSender(metrics.LogSender{})
	coord.RegisterProvider(words.New(currentBufferText(v)))
	coord.RegisterProvider(paths.New())

	if err := bridge.RegisterEvents(func(event string, payload []byte) {
		dispatch(coord, event, payload)
	}); err != nil {
		logger.Fatal("register events failed: %v", err)
	}

	stopWatch, err := cfgStore.Watch(func(types.Config) { coord.ConfigChanged() })
	if err != nil {
		logger.Warn("config watch disabled: %v", err)
		stopWatch = func() error { return nil }
	}
	defer stopWatch()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coord.Start(ctx)
	defer coord.Stop()

	if err := v.Serve(); err != nil {
		logger.Warn("nvim session ended: %v", err)
	}
}

func defaultStateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "complete-coordinator")
	}
	return ".complete-coordinator"
}

// dispatch decodes one complete_coordinator_event notification and
// drives the matching Coordinator entry point.
func dispatch(coord *engine.Coordinator, event string, payload []byte) {
	switch event {
	case "InsertCharPre":
		var p struct{ Ch string }
		if decode(payload, &p) {
			coord.InsertCharPre(p.Ch)
		}
	case "InsertEnter":
		var p struct{ Pre string }
		if decode(payload, &p) {
			coord.InsertEnter(p.Pre)
		}
	case "InsertLeave":
		coord.InsertLeave()
	case "TextChangedI":
		var c types.InsertChange
		if decode(payload, &c) {
			coord.TextChangedI(c)
		}
	case "TextChangedP":
		var c types.InsertChange
		if decode(payload, &c) {
			coord.TextChangedP(c)
		}
	case "CompleteDone":
		var item *types.Item
		if decode(payload, &item) {
			coord.CompleteDone(item)
		}
	case "MenuPopupChanged":
		var ev classifier.PopupChangeEvent
		if decode(payload, &ev) {
			coord.MenuPopupChanged(ev)
		}
	default:
		logger.Warn("unknown editor event: %s", event)
	}
}

func decode(payload []byte, v any) bool {
	if len(payload) == 0 {
		return true
	}
	if err := json.Unmarshal(payload, v); err != nil {
		logger.Warn("decode %T failed: %v", v, err)
		return false
	}
	return true
}

func currentBufferText(v *nvim.Nvim) func(bufnr int) (string, error) {
	return func(bufnr int) (string, error) {
		lines, err := v.BufferLines(nvim.Buffer(bufnr), 0, -1, false)
		if err != nil {
			return "", err
		}
		out := make([]byte, 0, 4096)
		for _, l := range lines {
			out = append(out, l...)
			out = append(out, '\n')
		}
		return string(out), nil
	}
}
