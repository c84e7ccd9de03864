/*
Package templating renders HTML views of n-gram models from a directory of Go
templates.

Full pages are files matching *.tmpl.html and partials are files matching
*.part.html. Both are parsed into one template set with a function map that
calls into package ngram, so a template can list a corpus's keys, print its
successor table, or generate a passage:

	{{ passage "alice" 40 }}
	{{ range modelTable "alice" }}{{ .Key }}: {{ range .Successors }}{{ display .Token }} {{ percent .Probability }} {{ end }}{{ end }}

Models are looked up by corpus name through a ModelSource, which always
returns the currently published model. Templates can be reloaded from disk
with Refresh without restarting the application.
*/
package templating
