package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/astkeeper/internal/action"
	"github.com/dgallion1/astkeeper/internal/config"
	"github.com/dgallion1/astkeeper/internal/store"
)

// astkeeper executes exactly one structured request against the outline
// store: JSON request in (stdin or -request), JSON result out. Structured
// errors still exit 0 — the boundary contract is a serializable result; a
// nonzero exit means the process itself failed.
func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var (
		requestJSON = flag.String("request", "", "request JSON (default: read from stdin)")
		storePath   = flag.String("store", "", "store file path (overrides ASTKEEPER_STORE_PATH)")
	)
	flag.Parse()

	cfg := config.Load()
	if *storePath != "" {
		cfg.StorePath = *storePath
	}

	raw := []byte(*requestJSON)
	if len(raw) == 0 {
		var err error
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			log.Error("read request", "error", err)
			os.Exit(1)
		}
	}

	st := store.New(cfg.StorePath, store.Options{
		TokenTTL:         cfg.TokenTTL,
		MaxPendingTokens: cfg.MaxPendingTokens,
		Logger:           log,
	})
	handler := action.NewHandler(st, cfg, log)

	var result action.Result
	var req action.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		result = action.Result{
			Error: &action.ErrorInfo{
				Code:    action.CodeBadRequest,
				Message: fmt.Sprintf("invalid request JSON: %v", err),
			},
		}
	} else {
		result = handler.Handle(req)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		log.Error("encode result", "error", err)
		os.Exit(1)
	}
}
