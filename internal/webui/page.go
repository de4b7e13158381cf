package webui

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/matsen/scout/internal/chatbot"
)

// compiledPage is parsed at init time to fail fast on template errors.
var compiledPage = template.Must(template.New("page").Funcs(template.FuncMap{
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}).Parse(pageTemplate))

// pageData is everything the chat page renders.
type pageData struct {
	Title       string
	Profile     Profile
	Notice      string
	Warning     string
	Response    string
	Tip         string
	ShowHistory bool
	History     []chatbot.HistoryEntry
}

func renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := compiledPage.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; }
aside { width: 18rem; padding: 1rem; background: #f0f2f6; min-height: 100vh; }
main { flex: 1; padding: 1rem 2rem; max-width: 46rem; }
label { display: block; margin-top: .5rem; }
input[type=text], input[type=email] { width: 100%; box-sizing: border-box; }
.notice { background: #e6f4ea; padding: .5rem; }
.warning { background: #fff4e5; padding: .5rem; }
.info { background: #e8f0fe; padding: .5rem; }
.response { background: #e6f4ea; padding: .5rem; white-space: pre-wrap; }
</style>
</head>
<body>
<aside>
  <h2>Your Profile</h2>
  <form method="post" action="/profile">
    <label>Your Name <input type="text" name="name" value="{{.Profile.Name}}"></label>
    <label>Company Name <input type="text" name="company" value="{{.Profile.Company}}"></label>
    <label>Email <input type="email" name="email" value="{{.Profile.Email}}"></label>
    <p><button type="submit">Update Profile</button></p>
  </form>
  <form method="post" action="/memory/clear"><button type="submit">Clear Chat Memory</button></form>
  <form method="post" action="/history"><p><button type="submit">Show History</button></p></form>
  {{if .ShowHistory}}
  <h3>Conversation History</h3>
  {{if .History}}{{range .History}}
  <p><strong>{{title .Role}}</strong>: {{.Content}}</p>
  {{end}}{{else}}<p class="info">No history yet.</p>{{end}}
  {{end}}
</aside>
<main>
  <h1>{{.Title}}</h1>
  {{with .Notice}}<p class="notice">{{.}}</p>{{end}}
  <h2>Chat With the Bot</h2>
  <form method="post" action="/send">
    <label>Type your message: <input type="text" name="message" autofocus></label>
    <p><button type="submit">Send</button></p>
  </form>
  {{with .Warning}}<p class="warning">{{.}}</p>{{end}}
  {{with .Response}}<div class="response">Bot: {{.}}</div>{{end}}
  {{with .Tip}}<p class="info">{{.}}</p>{{end}}
</main>
</body>
</html>
`
