package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"companyinfo/cmd/internal/utils/apierror"
)

// toError turns a service error response into a CLI error message.
func toError(apierr apierror.ErrorResponse) error {
	switch e := apierr.(type) {
	case *apierror.APIError:
		return errors.New(e.Message)
	case *apierror.DetailedError:
		return errors.New(e.Message)
	case *apierror.StructuredError:
		fields := make([]string, 0, len(e.Errors))
		for field := range e.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		problems := make([]string, 0, len(fields))
		for _, field := range fields {
			problems = append(problems, field+": "+strings.Join(e.Errors[field], ", "))
		}
		return errors.New(strings.Join(problems, "; "))
	}
	return fmt.Errorf("request failed with status %d", apierr.Code())
}
