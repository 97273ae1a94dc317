package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/crmimport/internal/core"
)

// ErrorAlert renders an error message for HTMX swaps.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p>%s</p>`,
			templ.EscapeString(msg.Message))
		if err != nil {
			return err
		}
		if msg.Action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, templ.EscapeString(msg.Action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<small>Code: %s</small></div>`, templ.EscapeString(msg.Code))
		return err
	})
}

// RunSummary renders the final line of a run, or its validation counts while
// it is still open.
func RunSummary(v core.RunView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		switch {
		case v.Summary != nil:
			_, err := fmt.Fprintf(w,
				`<div class="run-summary outcome-%s" data-run="%s"><p>%s</p></div>`,
				templ.EscapeString(string(v.Summary.Outcome)),
				templ.EscapeString(v.ID),
				templ.EscapeString(v.Summary.Message))
			return err
		case v.Report != nil:
			_, err := fmt.Fprintf(w,
				`<div class="run-summary" data-run="%s"><p>%d valid, %d invalid, %d with warnings</p></div>`,
				templ.EscapeString(v.ID), v.Report.Valid, v.Report.Invalid, v.Report.Warnings)
			return err
		default:
			_, err := fmt.Fprintf(w,
				`<div class="run-summary" data-run="%s"><p>%d rows in %s</p></div>`,
				templ.EscapeString(v.ID), v.RowCount, templ.EscapeString(v.FileName))
			return err
		}
	})
}
