package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/prn-tf/home-store/internal/service"
)

// Form carries submitted values and their errors back into a template.
type Form struct {
	Values         map[string]string
	Errors         map[string]string
	NonFieldErrors []string
}

func newForm() *Form {
	return &Form{
		Values: make(map[string]string),
		Errors: make(map[string]string),
	}
}

// formFromRequest copies the named fields from a parsed request body.
func formFromRequest(r *http.Request, fields ...string) *Form {
	f := newForm()
	for _, name := range fields {
		f.Values[name] = r.PostFormValue(name)
	}
	return f
}

// Get returns the value of field.
func (f *Form) Get(field string) string {
	return f.Values[field]
}

// Error returns the error message of field, or "".
func (f *Form) Error(field string) string {
	return f.Errors[field]
}

// AddError records msg for field unless it already has one.
func (f *Form) AddError(field, msg string) {
	if _, ok := f.Errors[field]; !ok {
		f.Errors[field] = msg
	}
}

// AddNonFieldError records an error about the form as a whole.
func (f *Form) AddNonFieldError(msg string) {
	f.NonFieldErrors = append(f.NonFieldErrors, msg)
}

// Merge adds field errors from a service validation error.
func (f *Form) Merge(fields map[string]string) {
	for field, msg := range fields {
		f.AddError(field, msg)
	}
}

// Required flags every empty field.
func (f *Form) Required(fields ...string) {
	for _, name := range fields {
		if strings.TrimSpace(f.Values[name]) == "" {
			f.AddError(name, service.MsgRequired)
		}
	}
}

// Valid reports whether the form has no errors.
func (f *Form) Valid() bool {
	return len(f.Errors) == 0 && len(f.NonFieldErrors) == 0
}

// safeNext returns next when it is a local path other than the logout page,
// and "/" otherwise.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	if u.Path == logoutURL {
		return "/"
	}
	return next
}

// localReferer returns the path of a same-host Referer, or fallback.
func localReferer(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	return safeNext(u.RequestURI())
}
