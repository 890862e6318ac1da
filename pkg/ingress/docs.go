package ingress

import "net/http"

// docsPage is a static HTML page embedding a CDN-hosted OpenAPI
// viewer against /openapi.json, the way the original's web.rs
// serve_docs renders a Stoplight Elements page. Rendering the actual
// viewer is an external collaborator's concern; this is just the
// shell.
const docsPage = `<!doctype html>
<html>
<head>
  <title>HyperSpot API Docs</title>
  <meta charset="utf-8"/>
  <script src="https://unpkg.com/@stoplight/elements/web-components.min.js"></script>
  <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements/styles.min.css"/>
</head>
<body style="margin:0">
  <elements-api apiDescriptionUrl="/openapi.json" router="hash" layout="sidebar"></elements-api>
</body>
</html>`

func docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(docsPage))
}
