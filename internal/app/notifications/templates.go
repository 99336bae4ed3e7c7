package notifications

import (
	"bytes"
	"html/template"
	"strings"
	texttemplate "text/template"
)

const brand = "Hostel Hunt"

// message is the content of one email before rendering.
type message struct {
	Subject  string
	Title    string
	Greeting string
	Intro    []string
	Heading  string
	Details  []detail
	Action   *action
	Outro    []string
}

type detail struct {
	Label string
	Value string
}

type action struct {
	Label string
	URL   string
}

var htmlLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<h2 style="color: #2c3e50;">{{.Title}}</h2>
{{if .Greeting}}<p>{{.Greeting}}</p>{{end}}
{{range .Intro}}<p>{{.}}</p>
{{end}}{{if .Details}}<div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px; margin: 20px 0;">
{{if .Heading}}<h3 style="margin-top: 0;">{{.Heading}}</h3>{{end}}
{{range .Details}}<p><strong>{{.Label}}:</strong> {{.Value}}</p>
{{end}}</div>
{{end}}{{with .Action}}<p><a href="{{.URL}}" style="background-color: #007bff; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">{{.Label}}</a></p>
{{end}}{{range .Outro}}<p>{{.}}</p>
{{end}}<p>Best regards,<br>The ` + brand + ` Team</p>
</div>
</body>
</html>
`))

var textLayout = texttemplate.Must(texttemplate.New("email").Parse(`{{.Title}}

{{if .Greeting}}{{.Greeting}}

{{end}}{{range .Intro}}{{.}}
{{end}}{{if .Heading}}
{{.Heading}}
{{end}}{{range .Details}}{{.Label}}: {{.Value}}
{{end}}{{with .Action}}
{{.Label}}: {{.URL}}
{{end}}{{range .Outro}}
{{.}}{{end}}

Best regards,
The ` + brand + ` Team
`))

// render produces the HTML and plain-text bodies of msg.
func render(msg message) (string, string, error) {
	var html, text bytes.Buffer
	if err := htmlLayout.Execute(&html, msg); err != nil {
		return "", "", err
	}
	if err := textLayout.Execute(&text, msg); err != nil {
		return "", "", err
	}
	return html.String(), strings.TrimSpace(text.String()) + "\n", nil
}
