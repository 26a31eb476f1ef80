package preview

import (
	"bytes"
	"fmt"
	"html/template"
)

// maxPreviewTextLen caps the description embedded in a preview document.
const maxPreviewTextLen = 200

// previewTemplate is the self-contained preview document. The meta tags are
// what link-unfurling crawlers consume; the body is only seen on an
// accidental direct render.
const previewTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta property="og:title" content="{{.DisplayName}}">
    <meta property="og:description" content="{{.Text}}">
    <meta property="og:image" content="{{.ImageURL}}">
    <meta property="og:url" content="{{.PostURL}}">
    <meta property="twitter:card" content="summary">
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 20px;
        }
        .container {
            display: flex;
            align-items: flex-start;
            border: 1px solid #ddd;
            border-radius: 8px;
            padding: 10px;
            max-width: 600px;
        }
        .thumbnail {
            margin-right: 15px;
            flex-shrink: 0;
        }
        .thumbnail img {
            max-width: 100px;
            border-radius: 8px;
        }
        .content {
            flex-grow: 1;
        }
        .content h1 {
            font-size: 18px;
            margin: 0;
        }
        .content p {
            margin-top: 8px;
            font-size: 14px;
            color: #555;
        }
        a {
            text-decoration: none;
            color: #1da1f2;
        }
    </style>
    <title>{{.DisplayName}}'s Bluesky Post</title>
</head>
<body>
    <div class="container">
        {{if .ImageURL}}
        <div class="thumbnail">
            <img src="{{.ImageURL}}" alt="Bluesky Post Image">
        </div>
        {{end}}
        <div class="content">
            <h1>{{.DisplayName}}</h1>
            <p>{{.Text}}</p>
            <a href="{{.PostURL}}">View Full Post on Bluesky</a>
        </div>
    </div>
</body>
</html>
`

var previewTmpl = template.Must(template.New("preview").Parse(previewTemplate))

// Render produces the preview document for meta, truncating the post text.
func Render(meta *Metadata) ([]byte, error) {
	truncated := *meta
	truncated.Text = truncate(meta.Text, maxPreviewTextLen)

	var buf bytes.Buffer
	if err := previewTmpl.Execute(&buf, truncated); err != nil {
		return nil, fmt.Errorf("failed to render preview document: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
