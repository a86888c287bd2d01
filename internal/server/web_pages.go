package server

import (
	"errors"
	"html/template"
	"net/http"

	"rfmseg/internal/core"
	"rfmseg/internal/render"
	"rfmseg/internal/segment"
)

var reportPage = template.Must(template.New("report").Parse(reportPageTemplate))

// reportPageData is the view model of the report page
type reportPageData struct {
	K          int
	KOptions   []int
	CohortSize int
	Error      string
	Report     template.HTML
	Result     *core.SegmentResult
}

// handleReportPage handles GET / (HTML page). A bad K keeps the page usable
// and shows the error above the selector.
func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	data := reportPageData{
		KOptions:   s.clustering.KOptions,
		CohortSize: s.dataset.Size(),
	}

	status := http.StatusOK
	k, err := s.requestedK(r)
	if err == nil {
		data.K = k
		data.Result, err = segment.Run(s.dataset, k)
	}
	if err != nil {
		status = http.StatusBadRequest
		if !errors.Is(err, core.ErrInvalidParameter) {
			s.log.Error("Segmentation failed", "error", err)
			status = http.StatusInternalServerError
		}
		data.Error = err.Error()
	} else {
		data.Report = template.HTML(render.HTML(data.Result))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := reportPage.Execute(w, data); err != nil {
		s.log.Error("Failed to render report page", "error", err)
	}
}

const reportPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Customer Segmentation</title>
    <style>
        body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 960px; color: #222; }
        table { border-collapse: collapse; margin-top: 1rem; }
        th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; }
        th { background: #f4f4f4; }
        .error { color: #b00020; font-weight: bold; }
        .muted { color: #777; }
    </style>
</head>
<body>
    <h2>Customer Segmentation</h2>
    <form method="get" action="/">
        <label for="k">Number of clusters</label>
        <select id="k" name="k" onchange="this.form.submit()">
            {{range .KOptions}}<option value="{{.}}"{{if eq . $.K}} selected{{end}}>{{.}}</option>{{end}}
        </select>
        <noscript><button type="submit">Run</button></noscript>
    </form>
    <p class="muted">{{.CohortSize}} customers in cohort</p>
    {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
    {{with .Result}}
    <p class="muted">Download labeled points: <a href="/api/segments/{{.K}}/points?format=csv">CSV</a> | <a href="/api/segments/{{.K}}/points">JSON</a></p>
    {{end}}
    {{.Report}}
</body>
</html>
`
