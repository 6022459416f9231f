package web

import "html/template"

const (
	lobbyTemplate  = "lobby.html"
	resultTemplate = "result.html"
)

const templatesSource = `
{{define "lobby.html"}}<!DOCTYPE html>
<html>
  <head><title>Member sign-in</title></head>
  <body>
    <h1>Member sign-in</h1>
    <p><a href="{{.LoginPath}}">Sign in with your member account</a></p>
  </body>
</html>
{{end}}
{{define "result.html"}}<!DOCTYPE html>
<html>
  <head><title>Signed in</title></head>
  <body>
    <h1>Signed in</h1>
    <h2>Token</h2>
    <pre id="token">{{.Token}}</pre>
    <h2>Member</h2>
    <pre id="member">{{.Member}}</pre>
    <h2>Refreshed token</h2>
    <pre id="refreshed">{{.Refreshed}}</pre>
    <p><a href="{{.LobbyPath}}">Back</a></p>
  </body>
</html>
{{end}}
`

var templates = template.Must(template.New("web").Parse(templatesSource))

type lobbyData struct {
	LoginPath string
}

type resultData struct {
	Token     string
	Member    string
	Refreshed string
	LobbyPath string
}
