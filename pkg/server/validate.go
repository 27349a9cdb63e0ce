package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gehringer/solarboard/pkg/chart"
	"github.com/gehringer/solarboard/pkg/common"
	"github.com/gehringer/solarboard/pkg/dashboard"
	"github.com/gehringer/solarboard/pkg/storage"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/gehringer/solarboard/pkg/webhook"
	"github.com/hashicorp/go-multierror"
)

// ValidationError lists every problem found with a request's parameters.
// Missing parameters are reported first.
type ValidationError struct {
	Missing []string
	err     *multierror.Error
}

func (v *ValidationError) Error() string {
	return v.err.Error()
}

func (v *ValidationError) Unwrap() error {
	return v.err
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

type validator struct {
	missing  []string
	problems []error
}

// require records name as missing when value is empty and reports whether
// it is present.
func (v *validator) require(name, value string) bool {
	if value == "" {
		v.missing = append(v.missing, name)
		return false
	}
	return true
}

func (v *validator) check(ok bool, format string, args ...any) {
	if !ok {
		v.problems = append(v.problems, fmt.Errorf(format, args...))
	}
}

// date checks an optional YYYY-MM-DD parameter.
func (v *validator) date(name, value string) {
	if value == "" {
		return
	}
	v.check(types.ValidDate(value), "invalid %s %q, expected YYYY-MM-DD", name, value)
}

func (v *validator) err() error {
	if len(v.missing) == 0 && len(v.problems) == 0 {
		return nil
	}
	var merr *multierror.Error
	if len(v.missing) > 0 {
		merr = multierror.Append(merr, fmt.Errorf("missing required parameters: %s", strings.Join(v.missing, ", ")))
	}
	merr = multierror.Append(merr, v.problems...)
	merr.ErrorFormat = joinErrors
	return &ValidationError{Missing: v.missing, err: merr}
}

// statusFor maps an error to the status code returned to clients.
func statusFor(err error) int {
	var verr *ValidationError
	var herr *common.HTTPError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownTab), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, webhook.ErrNoSource):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &herr),
		errors.Is(err, common.ErrEmptyResponse),
		errors.Is(err, common.ErrMalformedResponse),
		errors.Is(err, common.ErrNoData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseTab(r *http.Request) (chart.Tab, error) {
	name := r.PathValue("tab")
	tab, ok := chart.ParseTab(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", dashboard.ErrUnknownTab, name)
	}
	return tab, nil
}
