// seehuhn.de/go/mapscript - an interpreter for a map drawing language
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package mapscript

import (
	"context"
	"time"
)

// Throttle limits the resources a script may use.
// The zero value imposes no limits and forbids nothing.
type Throttle struct {
	// Timeout is the maximum run time of a script.  Zero means no limit.
	Timeout time.Duration

	// DenyIO forbids opening datasets and output files, and reading
	// icons and spool files.
	DenyIO bool

	// Pace is a delay inserted at every statement and loop iteration.
	Pace time.Duration
}

// poll is called at every statement boundary and loop iteration.
func (intp *Interpreter) poll() error {
	ctx := intp.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return errCancelled(context.Cause(ctx))
	}
	if t := intp.Throttle.Timeout; t > 0 && time.Since(intp.started) > t {
		return errThrottle("script exceeded time limit of %s", t)
	}
	if d := intp.Throttle.Pace; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return errCancelled(context.Cause(ctx))
		case <-timer.C:
		}
	}
	return nil
}

// checkIO returns an error if the throttle forbids the named operation.
func (intp *Interpreter) checkIO(what string) error {
	if intp.Throttle.DenyIO {
		return errThrottle("%s is not permitted", what)
	}
	return nil
}
