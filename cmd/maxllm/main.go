package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/HemaCharanPyla/MAX-LLM/internal/agent"
	"github.com/HemaCharanPyla/MAX-LLM/internal/config"
	"github.com/HemaCharanPyla/MAX-LLM/internal/history"
	"github.com/HemaCharanPyla/MAX-LLM/internal/llm"
	"github.com/HemaCharanPyla/MAX-LLM/internal/logger"
	"github.com/HemaCharanPyla/MAX-LLM/internal/session"
	"github.com/HemaCharanPyla/MAX-LLM/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		cfg = &config.Config{}
	}
	logger.SetLevel(cfg.Log.Level)

	store := history.Open(cfg.History.DBPath)
	defer store.Close()

	sessions := session.NewManager(store)
	snap := snapshot.NewCache(store)
	llmClient := llm.NewClient(cfg.LLM)

	a := agent.New(llmClient, store, sessions, snap, cfg.LLM)
	logger.L.Info("conversation restored", "turns", len(a.LiveHistory()), "model", a.Model(), "session_id", sessions.Current())

	mux := http.NewServeMux()

	// main chat endpoint: the request body is the user's turn
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		reply, err := a.Process(r.Context(), string(body))
		if errors.Is(err, agent.ErrContextTooLarge) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil {
			logger.L.Error("process error", "error", err)
			http.Error(w, "failed to process request", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(reply))
	})

	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, a.SessionHistory())
	})

	mux.HandleFunc("POST /reset", func(w http.ResponseWriter, r *http.Request) {
		a.Reset()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /export", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, a.ExportConversation())
	})

	mux.HandleFunc("GET /model", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"model": a.Model()})
	})

	mux.HandleFunc("POST /model", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil || len(strings.TrimSpace(string(body))) == 0 {
			http.Error(w, "model id required", http.StatusBadRequest)
			return
		}
		a.SetModel(strings.TrimSpace(string(body)))
		w.WriteHeader(http.StatusNoContent)
	})

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", serverAddr)
	if err := http.ListenAndServe(serverAddr, mux); err != nil {
		logger.L.Error("failed to start server", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("failed to encode response", "error", err)
	}
}
