// XPK decrunchers

// Copyright (C) 2025 Elliot Nunn

// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2.1 of the License, or (at your option) any later version.

// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.

package xpk

import (
	"errors"
	"fmt"
)

var (
	ErrCorruptData        = errors.New("corrupt data")
	ErrWrongBlockChecksum = errors.New("wrong block checksum")
	ErrUnknownFormat      = errors.New("unknown xpk format")
	ErrStateRequired      = errors.New("chunk continues a stream that was never started")
)

// DecruncherError attributes a failure to the agent and format that raised it.
type DecruncherError struct {
	Agent  string
	Format string
	Err    error
}

func (e *DecruncherError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Agent, e.Format, e.Err)
}

func (e *DecruncherError) Unwrap() error { return e.Err }

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorruptData}, args...)...)
}

// classify folds everything that is not already one of the two error kinds into ErrCorruptData
func classify(err error) error {
	if errors.Is(err, ErrCorruptData) || errors.Is(err, ErrWrongBlockChecksum) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCorruptData, err)
}
