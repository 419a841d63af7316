// Package templates renders the HTML for the import form.
//
// Components live in the .templ files; run `templ generate` after editing
// them. This file holds the view models and helpers they share.
package templates

import (
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/shp2pg/internal/core"
)

// FormParams holds what the import form shows.
type FormParams struct {
	Input      core.FormInput
	Platform   string // username convention in effect, e.g. "Linux"
	ErrorField string // field to highlight after a validation failure
}

// PageParams is the full import page: the form and the last result, if any.
type PageParams struct {
	Form   FormParams
	Result *core.Report
}

type formField struct {
	name        string
	value       string
	placeholder string
	inputType   string
}

func formFields(in core.FormInput) []formField {
	return []formField{
		{core.FieldShapefilePath, in.ShapefilePath, "/data/roads.shp", "text"},
		{core.FieldSRID, in.SRID, "4326", "number"},
		{core.FieldDatabase, in.Database, "gis", "text"},
		{core.FieldTable, in.Table, "roads", "text"},
		{core.FieldHost, in.Host, "127.0.0.1", "text"},
		{core.FieldPort, in.Port, "5432", "number"},
		{core.FieldUsername, in.Username, "postgres", "text"},
	}
}

func outcomeClass(o core.Outcome) string {
	switch o {
	case core.OutcomeSuccess:
		return "info"
	case core.OutcomeWarning:
		return "warning"
	default:
		return "error"
	}
}

// resultMeta is the footer line of a result panel.
func resultMeta(rep core.Report) string {
	meta := fmt.Sprintf("Import %s · %s", rep.ID, rep.Duration.Round(time.Millisecond))
	if rep.Code != "" {
		meta = "Code: " + rep.Code + " · " + meta
	}
	return meta
}

// historyTarget formats where an import went; empty when validation failed.
func historyTarget(req core.ImportRequest) string {
	if req.Table == "" {
		return ""
	}
	return req.Database + "." + req.Table + " @ " + req.Host + ":" + strconv.Itoa(req.Port)
}
