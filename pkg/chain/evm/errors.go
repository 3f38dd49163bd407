// Copyright 2025 Interlayer Labs

package evm

import "errors"

var errMismatchedStorageLocations = errors.New("evm: validator announce returned mismatched storage location count")
