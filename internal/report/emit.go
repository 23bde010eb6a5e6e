package report

import (
	"errors"
	"fmt"

	"github.com/nao1215/linkcheck/internal/model"
)

var (
	// ErrBrokenLinks is returned by Emit after reporting at least one
	// broken link. It signals a failed check, not a malfunction.
	ErrBrokenLinks = errors.New("broken links found")

	// ErrInvariantViolation is returned when a result's healthy and broken
	// counts do not add up to the number of registered URLs. It indicates a
	// defect in the crawler; the result is not reported.
	ErrInvariantViolation = errors.New("link check tally does not match registered URLs")
)

// Verify checks the core invariant of every result: OK + Broken must equal
// the number of distinct registered URLs.
func Verify(results ...*model.Result) error {
	for _, r := range results {
		if r == nil {
			return fmt.Errorf("%w: missing result", ErrInvariantViolation)
		}
		if !r.Reconciles() {
			return fmt.Errorf("%w: %s: ok %d + broken %d != registered %d",
				ErrInvariantViolation, r.StartURL, r.OK, r.Broken, r.Registered)
		}
		if len(r.Failures) != r.Broken {
			return fmt.Errorf("%w: %s: %d broken but %d failures listed",
				ErrInvariantViolation, r.StartURL, r.Broken, len(r.Failures))
		}
	}
	return nil
}

// Emit verifies the results, writes them, and turns them into the check's
// outcome: nil when nothing is broken, ErrBrokenLinks otherwise.
func Emit(w Writer, results ...*model.Result) error {
	if err := Verify(results...); err != nil {
		return err
	}
	if _, err := w.Write(results...); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	broken := 0
	for _, r := range results {
		broken += r.Broken
	}
	if broken > 0 {
		return fmt.Errorf("%w: %d", ErrBrokenLinks, broken)
	}
	return nil
}
