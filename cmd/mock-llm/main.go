// Command mock-llm serves a tiny OpenAI-compatible chat completions API for
// local development. Point GROQ_BASE_URL or OPENAI_BASE_URL at it.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ccastromar/barberchat/internal/textnorm"
)

var listenAndServe = http.ListenAndServe

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

var (
	dateRe = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	timeRe = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
)

func buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/models", handleModels)
	mux.HandleFunc("/chat/completions", handleChat)
	return mux
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"object": "list",
		"data":   []any{map[string]any{"id": "mock-llm", "object": "model"}},
	})
}

func handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, `{"error":{"message":"invalid request"}}`, http.StatusBadRequest)
		return
	}

	user := req.Messages[len(req.Messages)-1].Content
	content := "¡Claro! ¿En qué más te puedo ayudar?"
	if req.Temperature == 0 {
		content = plan(user)
	}

	writeJSON(w, map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []any{map[string]any{
			"index":         0,
			"message":       message{Role: "assistant", Content: content},
			"finish_reason": "stop",
		}},
	})
}

// plan is a keyword classifier that answers in the planner JSON format.
func plan(text string) string {
	t := textnorm.Fold(text)
	kind := "small_talk"
	switch {
	case strings.Contains(t, "proxima cita") || strings.Contains(t, "mi cita"):
		kind = "get_next_appointment"
	case strings.Contains(t, "servicio") || strings.Contains(t, "precio"):
		kind = "search_services"
	case strings.Contains(t, "reserv") || strings.Contains(t, "cita") || strings.Contains(t, "corte"):
		kind = "create_appointment"
	}

	args := map[string]any{
		"barber":           nil,
		"appointment_date": nil,
		"start_time":       nil,
		"end_time":         nil,
		"services":         []string{},
	}
	if d := dateRe.FindString(text); d != "" {
		args["appointment_date"] = d
	}
	if times := timeRe.FindAllString(text, 2); len(times) > 0 {
		args["start_time"] = times[0]
		if len(times) > 1 {
			args["end_time"] = times[1]
		}
	}
	if strings.Contains(t, "corte") {
		args["services"] = []string{"corte"}
	}

	b, _ := json.Marshal(map[string]any{"intent": kind, "args": args})
	return string(b)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	log.Printf("[MOCK LLM] listening on %s", *addr)
	if err := listenAndServe(*addr, buildMux()); err != nil {
		log.Fatal(err)
	}
}
