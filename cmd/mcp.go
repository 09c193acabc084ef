package cmd

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/rag"
	"docrag/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing documentation search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
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

	s := mcpserver.NewMCPServer("docrag", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchDocsTool(), makeSearchDocsHandler(agent))
	s.AddTool(askDocsTool(), makeAskDocsHandler(agent))
	s.AddTool(listSourcesTool(), makeListSourcesHandler(idx))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchDocsTool() mcp.Tool {
	return mcp.NewTool("search_docs",
		mcp.WithDescription("Semantically search the ingested documentation. Returns the most relevant chunks with their source URLs."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query to search the documentation"),
		),
	)
}

func askDocsTool() mcp.Tool {
	return mcp.NewTool("ask_docs",
		mcp.WithDescription("Ask a question about the ingested documentation and get an answer grounded strictly in the retrieved context."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer from the documentation"),
		),
	)
}

func listSourcesTool() mcp.Tool {
	return mcp.NewTool("list_sources",
		mcp.WithDescription("List the documentation pages in the index with their chunk counts."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeSearchDocsHandler(agent *rag.Agent) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		records, err := agent.Retrieve(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatRecords(query, records)), nil
	}
}

func makeAskDocsHandler(agent *rag.Agent) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		resp, err := agent.Answer(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(resp.Answer)
		if len(resp.Context) > 0 {
			sb.WriteString("\n\n---\nGrounded on:\n")
			for _, r := range resp.Context {
				fmt.Fprintf(&sb, "- %s (%s)\n", r.ID, r.SourceURL)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeListSourcesHandler(idx *store.SQLiteIndex) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sources, err := idx.Sources()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list sources failed: %v", err)), nil
		}
		if len(sources) == 0 {
			return mcp.NewToolResultText("The index is empty. Run 'docrag ingest' to build it."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Indexed sources (%d)\n\n", len(sources))
		for _, src := range sources {
			fmt.Fprintf(&sb, "- %s (%d chunks)\n", src.URL, src.Chunks)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- Formatting helpers ---

func formatRecords(query string, records []store.Record) string {
	if len(records) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(records))
	for i, r := range records {
		fmt.Fprintf(&sb, "### Result %d: %s\n\n", i+1, r.ID)
		fmt.Fprintf(&sb, "**Source:** %s\n\n%s\n\n", r.SourceURL, r.Content)
	}
	return sb.String()
}
