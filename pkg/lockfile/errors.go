package lockfile

import "fmt"

// AbsentLockfile is returned by Load when no Proto.lock exists yet at
// the given path. Callers treat this as "resolve from scratch", not as
// a fatal error.
var AbsentLockfile = fmt.Errorf("no lockfile present")

// LockfileStale is returned by Reconcile when a manifest's requirement
// for a package no longer admits the version pinned in the lockfile.
type LockfileStale struct {
	PackageID string
}

func (e *LockfileStale) Error() string {
	return fmt.Sprintf("lockfile pin for %q no longer satisfies its manifest requirement", e.PackageID)
}
