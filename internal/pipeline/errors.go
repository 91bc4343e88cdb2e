package pipeline

import (
	"errors"
	"fmt"

	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/classify"
	"github.com/ges-coastal/coastal-monitor/internal/composite"
	"github.com/ges-coastal/coastal-monitor/internal/normalize"
	"github.com/ges-coastal/coastal-monitor/internal/quality"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
)

// Kind tells the caller what to do with a failed run.
type Kind int

const (
	UnknownError Kind = iota
	// InputError is a bad request; fix the parameters.
	InputError
	// DataAvailabilityError means there is no usable data for the request.
	DataAvailabilityError
	// ComputationError is a mismatch between stages or configuration.
	ComputationError
)

func (k Kind) String() string {
	switch k {
	case InputError:
		return "input"
	case DataAvailabilityError:
		return "data_availability"
	case ComputationError:
		return "computation"
	default:
		return "unknown"
	}
}

var ErrInvalidParams = errors.New("pipeline: invalid parameters")

// Error is a failed stage of a run.
type Error struct {
	Kind   Kind
	Stage  string
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s error in %s (%s): %v", e.Kind, e.Stage, e.Source, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidParams, InputError},
	{region.ErrNotFound, InputError},
	{region.ErrAmbiguous, InputError},
	{region.ErrInvalidBuffer, InputError},
	{catalog.ErrInvalidDateRange, InputError},
	{quality.ErrUnknownSource, InputError},
	{quality.ErrBadPredicate, InputError},
	{composite.ErrUnknownReducer, InputError},
	{classify.ErrWeightMismatch, InputError},
	{classify.ErrBadThresholds, InputError},
	{normalize.ErrBadScale, InputError},
	{catalog.ErrEmptyResult, DataAvailabilityError},
	{composite.ErrEmptyInput, DataAvailabilityError},
	{normalize.ErrDegenerateRange, ComputationError},
	{raster.ErrGridMismatch, ComputationError},
	{raster.ErrMissingBand, ComputationError},
}

// KindOf classifies err. A wrapped *Error keeps its own kind; otherwise the
// stage sentinel errors decide.
func KindOf(err error) Kind {
	if err == nil {
		return UnknownError
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return UnknownError
}

func stageError(stage, source string, err error) error {
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	return &Error{Kind: KindOf(err), Stage: stage, Source: source, Err: err}
}
