package engine

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an analysis error for callers that branch on failure
// class rather than message.
type Kind int

const (
	// KindInternal covers unexpected failures with no better class.
	KindInternal Kind = iota

	// KindConfiguration marks invalid settings or patterns; nothing was
	// analyzed.
	KindConfiguration

	// KindRepositoryAccess marks a repository that could not be opened or
	// walked.
	KindRepositoryAccess

	// KindFileBlame marks a blame failure on a selected file.
	KindFileBlame

	// KindCancelled marks an analysis stopped through its context.
	KindCancelled
)

// String returns the snake_case name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindRepositoryAccess:
		return "repository_access"
	case KindFileBlame:
		return "file_blame"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// Error is an analysis failure tagged with its kind and, when the failure
// is scoped to one repository, the repository name.
type Error struct {
	Kind Kind
	Repo string
	Err  error
}

// E wraps err with a kind and repository scope.
func E(kind Kind, repo string, err error) *Error {
	return &Error{Kind: kind, Repo: repo, Err: err}
}

func (e *Error) Error() string {
	if e.Repo != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Repo, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind of an error. Context cancellation maps to
// KindCancelled; anything untagged is KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}

	return KindInternal
}
