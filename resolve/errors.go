// Copyright 2023 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resolve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned when a Request is malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnresolvableTarget is returned when a target package has no
	// available version at all.
	ErrUnresolvableTarget = errors.New("unresolvable target")

	// ErrNoSolution is returned when no combination of available versions
	// satisfies every dependency.
	ErrNoSolution = errors.New("no feasible solution")

	// ErrSearchLimit is returned when the search exceeds its step budget.
	ErrSearchLimit = errors.New("search limit exceeded")

	// ErrInternal indicates a broken resolver invariant. It is a bug, not a
	// property of the input.
	ErrInternal = errors.New("internal consistency failure")
)

// UnresolvableTargetError reports the target packages that have no
// available versions.
type UnresolvableTargetError struct {
	Targets []PackageKey
}

func (e *UnresolvableTargetError) Error() string {
	return fmt.Sprintf("%v: no versions available for %s", ErrUnresolvableTarget, joinKeys(e.Targets))
}

func (e *UnresolvableTargetError) Unwrap() error { return ErrUnresolvableTarget }

// NoSolutionError describes a failed search. The diagnostics are best
// effort: Package is the package for which no acceptable version could be
// chosen at the deepest point of the search, and Conflicts holds the
// packages whose chosen versions ruled out its candidates. It is not
// guaranteed to be a minimal conflicting set.
type NoSolutionError struct {
	Package   PackageKey
	Conflicts []PackageKey
}

func (e *NoSolutionError) Error() string {
	if len(e.Conflicts) == 0 {
		return fmt.Sprintf("%v: cannot select a version of %s", ErrNoSolution, e.Package)
	}
	return fmt.Sprintf("%v: cannot select a version of %s compatible with %s", ErrNoSolution, e.Package, joinKeys(e.Conflicts))
}

func (e *NoSolutionError) Unwrap() error { return ErrNoSolution }

func joinKeys(ks []PackageKey) string {
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = k.Name
	}
	return strings.Join(names, ", ")
}
