package render

const subjectTemplates = `
{{define "application"}}Your application {{statusPhrase .Status}}{{if .ReferenceNumber}} ({{.ReferenceNumber}}){{end}}{{end}}
{{define "pay_stub"}}Your new pay stub is available{{end}}
`

const textTemplates = `
{{define "application"}}Hi {{.DisplayName}},

Your application{{if .ReferenceNumber}} {{.ReferenceNumber}}{{end}} {{statusPhrase .Status}}.
{{if .NeedsActionNote}}
Action needed: {{.NeedsActionNote}}
{{end}}{{if .RejectionReason}}
Reason: {{.RejectionReason}}
{{end}}{{if .AdminNote}}
Note from our team: {{.AdminNote}}
{{end}}{{if .Link}}
View your application: {{.Link}}
{{end}}{{end}}
{{define "pay_stub"}}Hi {{.DisplayName}},

A new pay stub{{if .PayPeriodID}} for period {{.PayPeriodID}}{{end}} is ready.{{if .NetPay}} Net pay: {{.NetPay}}.{{end}}
{{if .Link}}
View your pay stub: {{.Link}}
{{end}}{{end}}
`

const htmlTemplates = `
{{define "application"}}<!DOCTYPE html>
<html><body>
<p>Hi {{.DisplayName}},</p>
<p>Your application{{if .ReferenceNumber}} <strong>{{.ReferenceNumber}}</strong>{{end}} {{statusPhrase .Status}}.</p>
{{if .NeedsActionNote}}<p><strong>Action needed:</strong> {{.NeedsActionNote}}</p>{{end}}
{{if .RejectionReason}}<p><strong>Reason:</strong> {{.RejectionReason}}</p>{{end}}
{{if .AdminNote}}<p><strong>Note from our team:</strong> {{.AdminNote}}</p>{{end}}
{{if .Link}}<p><a href="{{.Link}}">View your application</a></p>{{end}}
</body></html>
{{end}}
{{define "pay_stub"}}<!DOCTYPE html>
<html><body>
<p>Hi {{.DisplayName}},</p>
<p>A new pay stub{{if .PayPeriodID}} for period <strong>{{.PayPeriodID}}</strong>{{end}} is ready.{{if .NetPay}} Net pay: <strong>{{.NetPay}}</strong>.{{end}}</p>
{{if .Link}}<p><a href="{{.Link}}">View your pay stub</a></p>{{end}}
</body></html>
{{end}}
`
