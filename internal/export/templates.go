package export

import "html/template"

var pages = template.Must(template.New("export").Parse(`
{{- define "toc" -}}
<div class="toc"><h2>Contents</h2><ul>
{{- range . }}<li class="toc-h{{ .Level }}"><a href="#{{ .ID }}">{{ .Text }}</a></li>{{ end -}}
</ul></div>
{{ end -}}

{{- define "page" -}}
<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{ .Title }}</title>
<style>
{{ .CSS }}
</style>
</head>
<body class="theme-{{ .Theme }}">
<div class="container">
<h1 class="document-title">{{ .Title }}</h1>
{{ if .TOC }}{{ template "toc" .TOC }}{{ end -}}
{{ .Body }}
</div>
<footer class="document-footer"><p>Exported at {{ .ExportedAt }}</p></footer>
</body>
</html>
{{ end -}}
`))

const baseCSS = `
* { margin: 0; padding: 0; box-sizing: border-box; }
body {
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
  line-height: 1.6;
  color: #1f2937;
  background-color: #ffffff;
}
.container { max-width: 800px; margin: 0 auto; padding: 2rem; }
.document-title { font-size: 2rem; font-weight: 600; margin-bottom: 1.5rem; padding-bottom: .5rem; border-bottom: 2px solid #e5e7eb; }
h1, h2, h3, h4, h5, h6 { margin: 1.5rem 0 .75rem; font-weight: 600; line-height: 1.3; }
p, ul, ol, pre, blockquote, table { margin-bottom: 1rem; }
ul, ol { padding-left: 2rem; }
code { font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace; background-color: #f3f4f6; padding: .1rem .3rem; border-radius: 3px; }
pre { background-color: #f3f4f6; padding: 1rem; border-radius: 6px; overflow-x: auto; }
pre code { background: none; padding: 0; }
blockquote { border-left: 4px solid #e5e7eb; padding-left: 1rem; color: #6b7280; }
hr { border: 0; border-top: 1px solid #e5e7eb; margin: 2rem 0; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #e5e7eb; padding: .5rem .75rem; text-align: left; }
th { background-color: #f9fafb; }
img { max-width: 100%; }
a { color: #2563eb; }
.toc { background-color: #f9fafb; padding: 1rem 1.5rem; border-radius: 6px; margin-bottom: 2rem; }
.toc ul { list-style: none; padding-left: 0; }
.toc a { color: #374151; text-decoration: none; }
.toc a:hover { color: #2563eb; text-decoration: underline; }
.toc-h2 { margin-left: 1rem; }
.toc-h3 { margin-left: 2rem; }
.toc-h4 { margin-left: 3rem; }
.toc-h5 { margin-left: 4rem; }
.toc-h6 { margin-left: 5rem; }
.document-footer { max-width: 800px; margin: 0 auto; padding: 1rem 2rem; color: #9ca3af; font-size: .85rem; }
@media print { .container { max-width: none; } }
`

const darkCSS = `
body.theme-dark { background-color: #111827; color: #f9fafb; }
.theme-dark .document-title { border-bottom-color: #374151; }
.theme-dark code, .theme-dark pre, .theme-dark th, .theme-dark .toc { background-color: #1f2937; color: #e5e7eb; }
.theme-dark blockquote { border-left-color: #374151; color: #9ca3af; }
.theme-dark hr { border-top-color: #374151; }
.theme-dark th, .theme-dark td { border-color: #374151; }
.theme-dark .toc a { color: #d1d5db; }
.theme-dark a { color: #60a5fa; }
.theme-dark a:hover { color: #93c5fd; }
`
