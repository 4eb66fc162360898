package leaderboard

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

type pageData struct {
	Scores       []scoreView
	Labels       []string
	Values       []float64
	LastModified string
	GeneratedAt  string
}

type scoreView struct {
	Rank    int
	Model   string
	Percent string
	Class   string
	Samples int
}

var pageTmpl = template.Must(template.New("leaderboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>LiveBench LLM Leaderboard</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; margin: 0; padding: 2rem; }
h1 { color: #10b981; }
.meta { color: #94a3b8; font-size: 0.9rem; margin-bottom: 1.5rem; }
table { border-collapse: collapse; width: 100%; max-width: 720px; margin-top: 2rem; }
th, td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid #1e293b; }
.score.high { color: #10b981; }
.score.medium { color: #facc15; }
.score.low { color: #f87171; }
#chart-wrap { max-width: 960px; }
</style>
</head>
<body>
<h1>LiveBench LLM Leaderboard</h1>
<div class="meta">
Generated {{.GeneratedAt}}{{if .LastModified}} &middot; Dataset last modified {{.LastModified}}{{end}} &middot;
Source: <a href="https://huggingface.co/datasets/livebench/model_judgment" style="color:#10b981">LiveBench Model Judgment</a>
</div>
<div id="chart-wrap"><canvas id="barChart"></canvas></div>
<table>
<thead><tr><th>#</th><th>Model</th><th>Avg Score</th><th>Samples</th></tr></thead>
<tbody>
{{range .Scores}}<tr><td>{{.Rank}}</td><td>{{.Model}}</td><td class="score {{.Class}}">{{.Percent}}</td><td>{{.Samples}}</td></tr>
{{end}}</tbody>
</table>
<script>
new Chart(document.getElementById('barChart').getContext('2d'), {
  type: 'bar',
  data: {
    labels: {{.Labels}},
    datasets: [{ label: 'Average score', data: {{.Values}}, backgroundColor: '#10b981' }]
  },
  options: { indexAxis: 'y', scales: { x: { min: 0, max: 1 } } }
});
</script>
</body>
</html>
`))

func renderPage(scores []ModelScore, lastModified string, now time.Time) ([]byte, error) {
	data := pageData{
		LastModified: lastModified,
		GeneratedAt:  now.Format("2006-01-02 15:04 UTC"),
	}
	for i, s := range scores {
		class := "low"
		switch {
		case s.AvgScore >= 0.8:
			class = "high"
		case s.AvgScore >= 0.6:
			class = "medium"
		}
		data.Scores = append(data.Scores, scoreView{
			Rank:    i + 1,
			Model:   s.Model,
			Percent: fmt.Sprintf("%.1f%%", s.AvgScore*100),
			Class:   class,
			Samples: s.Samples,
		})
		data.Labels = append(data.Labels, s.Model)
		data.Values = append(data.Values, s.AvgScore)
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
