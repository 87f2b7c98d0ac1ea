package workspace

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotWorkspace is returned by Discover when the root manifest has no
// [workspace] section.
var ErrNotWorkspace = errors.New("workspace: root manifest has no [workspace] section")

// MissingWorkspaceMember is returned when a path named in [workspace]
// members does not contain a loadable package manifest.
type MissingWorkspaceMember struct {
	Path string
	Err  error
}

func (e *MissingWorkspaceMember) Error() string {
	return fmt.Sprintf("workspace member %q: %s", e.Path, e.Err)
}

func (e *MissingWorkspaceMember) Unwrap() error { return e.Err }

// WorkspaceCycle is returned when publish ordering finds a cycle among
// workspace members' LocalPath dependencies.
type WorkspaceCycle struct {
	Members []string
}

func (e *WorkspaceCycle) Error() string {
	return fmt.Sprintf("workspace publish cycle: %s", strings.Join(e.Members, " -> "))
}

// NotPackageCommand is returned when a package-only command is invoked
// at a workspace root instead of inside a member directory.
type NotPackageCommand struct {
	Command string
}

func (e *NotPackageCommand) Error() string {
	return fmt.Sprintf("%q must be run inside a package directory, not a workspace root", e.Command)
}
