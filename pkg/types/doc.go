// Package types holds the error taxonomy and introspection records shared by
// the runtime packages under ns/ and by the nsctl tool.
//
// Errors are *Error values carrying an ErrKind. Packages wrap the sentinels
// (ErrNoBufs, ErrAlready, ErrNotFound, ErrFailed, ErrInvalidArgs) with
// fmt.Errorf("...: %w", err), so callers branch with errors.Is.
//
// This package has no dependencies beyond the standard library.
package types
