package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/fx"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/shopspring/decimal"
)

func main() {
	logging.Init("mock-rates", "info", os.Getenv("APP_ENV"))

	table, err := fx.NewTable(fx.DefaultSnapshot())
	if err != nil {
		slog.Error("failed to build rate table", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /latest/{base}", func(w http.ResponseWriter, r *http.Request) {
		base := domain.Currency(r.PathValue("base"))
		if !table.Supports(base) {
			writeJSON(w, http.StatusNotFound, fx.LatestResponse{Result: "error", ErrorType: "unsupported-code"})
			return
		}

		resp := fx.LatestResponse{
			Result:             "success",
			BaseCode:           string(base),
			TimeLastUpdateUnix: time.Now().Unix(),
			ConversionRates:    make(map[string]decimal.Decimal),
		}
		for code := range table.AllRates() {
			conv, err := table.Convert(decimal.NewFromInt(1), base, code)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, fx.LatestResponse{Result: "error", ErrorType: "internal"})
				return
			}
			resp.ConversionRates[string(code)] = conv.Rate
		}
		slog.Info("served rates", "base", base, "currencies", len(resp.ConversionRates))
		writeJSON(w, http.StatusOK, resp)
	})

	slog.Info("mock rates server started", "addr", ":8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
