package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const landingMarkdown = `# UW-Parkside RAG Chatbot API

Answers questions about the University of Wisconsin-Parkside from the university website,
with numbered citations and source links.

## Endpoints

| Method | Path | Purpose |
|---|---|---|
| POST | ` + "`/ask`" + ` | Ask a question: ` + "`{\"question\": \"...\", \"k\": 5}`" + ` |
| POST | ` + "`/ingest/start`" + ` | Crawl the website and rebuild the index: ` + "`{\"max_pages\": 600}`" + ` |
| GET | ` + "`/ingest/status`" + ` | Progress of the latest ingestion |
| GET | [/health](/health) | Models and index state |
| POST | ` + "`/mcp`" + ` | Model Context Protocol (Streamable HTTP) |
`

const landingPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>UW-Parkside RAG Chatbot API</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; max-width: 760px; margin: 3rem auto; padding: 0 1rem; color: #1f2937; }
  h1 { color: #00573f; }
  table { border-collapse: collapse; width: 100%; }
  th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #e5e7eb; }
  code { font-family: "SF Mono", Menlo, monospace; font-size: 0.9em; }
</style>
</head>
<body>
`

// RootResponse is the JSON body of GET /.
type RootResponse struct {
	Message string `json:"message"`
	Docs    string `json:"docs"`
	Health  string `json:"health"`
}

// renderLanding converts the landing Markdown to a full HTML page.
func renderLanding() ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var buf bytes.Buffer
	buf.WriteString(landingPage)
	if err := md.Convert([]byte(landingMarkdown), &buf); err != nil {
		return nil, err
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

// newRootHandler serves HTML to browsers and JSON to everyone else.
func newRootHandler(html []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if html != nil && c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
			c.Data(http.StatusOK, "text/html; charset=utf-8", html)
			return
		}
		c.JSON(http.StatusOK, RootResponse{
			Message: "UW-Parkside RAG Chatbot API",
			Docs:    "/docs",
			Health:  "/health",
		})
	}
}
