package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/shp2pg/internal/core"
	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return sb.String()
}

func TestResultPanel(t *testing.T) {
	tests := []struct {
		name    string
		rep     core.Report
		want    []string
		notWant []string
	}{
		{
			name: "success",
			rep:  core.Report{ID: "abc", Outcome: core.OutcomeSuccess, Title: "Successful!", Message: "Imported roads", Duration: 1500 * time.Microsecond},
			want: []string{`<section class="result result-info" role="alert">`, "<h2>Successful!</h2>", "Import abc · 2ms"},
			notWant: []string{`class="action"`, "<pre", "Code:"},
		},
		{
			name: "pipeline failure keeps tool output",
			rep: core.Report{ID: "def", Outcome: core.OutcomeError, Title: "Error", Message: "psql failed",
				Action: "Check the server log", Code: "PIPE001", Detail: "ERROR:  <bad> geometry\r\nrollback"},
			want: []string{"result-error", `<p class="action">Check the server log</p>`,
				"<pre class=\"detail\">ERROR:  &lt;bad&gt; geometry\r\nrollback</pre>", "Code: PIPE001 · Import def"},
		},
		{
			name: "warning",
			rep:  core.Report{Outcome: core.OutcomeWarning, Title: "Warning", Message: "table exists", Code: "TBL001"},
			want: []string{"result result-warning"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, ResultPanel(tt.rep))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("output contains %q\n%s", w, got)
				}
			}
		})
	}
}

func TestErrorAlert(t *testing.T) {
	got := render(t, ErrorAlert("Too many requests", "", "RATE001"))
	if !strings.Contains(got, `<p class="meta">Code: RATE001</p>`) {
		t.Errorf("missing code line: %s", got)
	}
	if strings.Contains(got, `class="action"`) {
		t.Errorf("empty action rendered: %s", got)
	}
}

func TestImportForm_HighlightsErrorField(t *testing.T) {
	got := render(t, ImportForm(FormParams{
		Input:      core.FormInput{Host: `999.1.1.1" onfocus="x`},
		Platform:   "Linux",
		ErrorField: core.FieldHost,
	}))

	for _, w := range []string{
		`<div class="field field-error"><label for="host">Host IP Address</label> <input id="host"`,
		`value="999.1.1.1&#34; onfocus=&#34;x"`,
		`<div class="field"><label for="table">`,
		"checked against Linux conventions.",
	} {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q\n%s", w, got)
		}
	}
	if n := strings.Count(got, "field-error"); n != 1 {
		t.Errorf("field-error count = %d, want 1", n)
	}
}

func TestImportPage(t *testing.T) {
	empty := render(t, ImportPage(PageParams{}))
	if !strings.HasPrefix(empty, "<!doctype html>") || !strings.Contains(empty, `<div id="result"></div><form`) {
		t.Errorf("page without result:\n%s", empty)
	}

	rep := core.Report{Outcome: core.OutcomeSuccess, Title: "Successful!"}
	withResult := render(t, ImportPage(PageParams{Result: &rep}))
	if !strings.Contains(withResult, `<div id="result"><section class="result result-info"`) {
		t.Errorf("page with result:\n%s", withResult)
	}
}

func TestHistoryTable(t *testing.T) {
	if got := render(t, HistoryTable(nil)); got != `<p class="empty">No imports yet.</p>` {
		t.Errorf("empty history = %q", got)
	}

	records := []core.ImportRecord{
		{
			Request:  core.ImportRequest{ShapefilePath: "/data/roads.shp", Database: "gis", Table: "roads", Host: "127.0.0.1", Port: 5432},
			Outcome:  core.OutcomeWarning,
			Code:     "TBL001",
			Message:  `table "roads" already exists`,
			Duration: 40 * time.Millisecond,
		},
		{Request: core.ImportRequest{ShapefilePath: "/tmp/x.shp"}, Outcome: core.OutcomeError, Code: "VAL001"},
	}
	got := render(t, HistoryTable(records))

	for _, w := range []string{
		`<tr class="result-warning" title="table &#34;roads&#34; already exists">`,
		"<td>gis.roads @ 127.0.0.1:5432</td>",
		"<td>40ms</td>",
		`<tr class="result-error"`,
		"<td>/tmp/x.shp</td><td></td>",
	} {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q\n%s", w, got)
		}
	}
}
