// Copyright 2025 ZeroSignal AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vectorstore

import "errors"

var (
	// ErrPackNotFound indicates the pack's collection does not exist in the
	// backing store. Callers map this to a user-facing "unknown pack" rather
	// than a transport failure.
	ErrPackNotFound = errors.New("context pack not found")

	// ErrInvalidVectorSize indicates a non-positive vector dimensionality.
	ErrInvalidVectorSize = errors.New("vector size must be positive")

	// ErrEmptyPackID indicates a blank pack identifier.
	ErrEmptyPackID = errors.New("pack id is empty")
)
