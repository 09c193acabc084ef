package cmd

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"docrag/internal/rag"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a minimal web UI over the ingested documentation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		idx, err := openIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		agent := newAgent(cfg, idx)
		log := slog.New(slog.NewTextHandler(os.Stderr, nil))

		mux := http.NewServeMux()
		mux.HandleFunc("/", makeAskHandler(agent, log))

		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		fmt.Printf("docrag web UI listening on http://localhost%s\n", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type askPage struct {
	Question string
	Answer   string
	Context  []contextChunk
	Err      string
}

type contextChunk struct {
	ID        string
	SourceURL string
	Content   string
}

func makeAskHandler(agent *rag.Agent, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := askPage{}

		if r.Method == http.MethodPost {
			question := r.FormValue("question")
			page.Question = question

			if question != "" {
				start := time.Now()
				resp, err := agent.Answer(r.Context(), question)
				if resp != nil {
					for _, rec := range resp.Context {
						page.Context = append(page.Context, contextChunk{
							ID:        rec.ID,
							SourceURL: rec.SourceURL,
							Content:   rec.Content,
						})
					}
				}
				if err != nil {
					// The retrieved context stays on the page even when
					// generation failed.
					page.Err = err.Error()
					log.Error("answer failed", "question", question, "error", err)
				} else {
					page.Answer = resp.Answer
					log.Info("answered", "question", question,
						"chunks", len(resp.Context),
						"elapsed", time.Since(start).Round(time.Millisecond))
				}
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := askTemplate.Execute(w, page); err != nil {
			log.Error("render failed", "error", err)
		}
	}
}

var askTemplate = template.Must(template.New("ask").Parse(`<!DOCTYPE html>
<html>
<head>
<title>docrag</title>
<style>
body { font-family: sans-serif; max-width: 56rem; margin: 2rem auto; padding: 0 1rem; }
textarea { width: 100%; height: 6rem; font-size: 1rem; }
button { padding: 0.5rem 1.5rem; font-size: 1rem; }
.answer { background: #e8f5e9; border-left: 4px solid #2e7d32; padding: 1rem; white-space: pre-wrap; }
.chunk { background: #f5f5f5; border-left: 4px solid #1565c0; padding: 1rem; margin: 0.5rem 0; white-space: pre-wrap; }
.chunk small { color: #666; }
.error { background: #ffebee; border-left: 4px solid #c62828; padding: 1rem; }
</style>
</head>
<body>
<h1>docrag</h1>
<p>Ask a question about the ingested documentation.</p>
<form method="post">
<textarea name="question" placeholder="e.g. Is there anything about JmsClient in Spring Boot 4.0?">{{.Question}}</textarea>
<button type="submit">Search &amp; Answer</button>
</form>
{{if .Err}}<h2>Error</h2><div class="error">{{.Err}}</div>{{end}}
{{if .Answer}}<h2>Answer</h2><div class="answer">{{.Answer}}</div>{{end}}
{{if .Context}}
<h2>Retrieved context ({{len .Context}} chunks)</h2>
{{range .Context}}
<div class="chunk"><small>{{.ID}} &mdash; {{.SourceURL}}</small><br>{{.Content}}</div>
{{end}}
{{end}}
</body>
</html>
`))
