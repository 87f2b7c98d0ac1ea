// Package workspace discovers a project's workspace members and
// sequences multi-member install and publish operations. Grounded on
// the teacher's pkg/orchestrator (Event/Hooks progress notification,
// a New-style wiring constructor) generalized from single-artifact
// install/uninstall to per-member install/publish sequencing with
// topological ordering.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/version"
)

const manifestFileName = "Proto.toml"

// Member is one workspace member: its package id, absolute directory,
// and parsed manifest.
type Member struct {
	ID       string
	Path     string
	Manifest *manifest.Manifest
}

// Workspace is a discovered set of members rooted at RootDir.
type Workspace struct {
	RootDir  string
	Manifest *manifest.Manifest
	Members  []Member
}

// Discover reads rootDir's Proto.toml and, if it declares a
// [workspace] section, loads every member's manifest in the order
// [workspace].members lists them. Returns ErrNotWorkspace if rootDir's
// manifest has no [workspace] section.
func Discover(rootDir string) (*Workspace, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	root, err := loadManifest(absRoot)
	if err != nil {
		return nil, fmt.Errorf("load workspace root manifest: %w", err)
	}
	if root.Workspace == nil {
		return nil, ErrNotWorkspace
	}

	members := make([]Member, 0, len(root.Workspace.Members))
	for _, relPath := range root.Workspace.Members {
		dir := filepath.Join(absRoot, relPath)
		m, err := loadManifest(dir)
		if err != nil {
			return nil, &MissingWorkspaceMember{Path: relPath, Err: err}
		}
		if m.Package == nil {
			return nil, &MissingWorkspaceMember{Path: relPath, Err: fmt.Errorf("manifest has no [package] section")}
		}
		members = append(members, Member{ID: m.Package.ID, Path: dir, Manifest: m})
	}

	return &Workspace{RootDir: absRoot, Manifest: root, Members: members}, nil
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return nil, err
	}
	return manifest.Parse(data)
}

// Event is a progress notification emitted during Install or Publish.
type Event struct {
	Phase string // installing|publishing|done|error
	ID    string // member package id
	Msg   string
}

// Hooks carries a callback for progress events. OnEvent may be nil.
type Hooks struct {
	OnEvent func(Event)
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// InstallFunc installs one member; the caller supplies it wired to a
// concrete graph.Build + resolver.Resolve + installer.Install pipeline
// rooted at m.Path.
type InstallFunc func(ctx context.Context, m Member) error

// Install runs install independently for every member, in the order
// Discover returned them. A member whose dependency on a sibling is
// declared via a Local path resolves that sibling straight from disk;
// Install itself does no dependency-aware ordering since the local
// override always reads live manifest state, not a cross-member pin.
func (ws *Workspace) Install(ctx context.Context, install InstallFunc, hooks Hooks) error {
	for _, m := range ws.Members {
		emit(hooks, Event{Phase: "installing", ID: m.ID, Msg: m.Path})
		if err := install(ctx, m); err != nil {
			emit(hooks, Event{Phase: "error", ID: m.ID, Msg: err.Error()})
			return fmt.Errorf("install member %q: %w", m.ID, err)
		}
	}
	emit(hooks, Event{Phase: "done"})
	return nil
}

// PublishFunc uploads m's package under target, returning the version
// it was published at. The caller supplies it wired to a concrete
// pkg.Load + archive.Bundle + registry.Client.Publish pipeline.
type PublishFunc func(ctx context.Context, m Member, target PublishTarget) (version.Version, error)

// PublishTarget names the registry and repository members publish to.
type PublishTarget struct {
	URL        string
	Repository string
}

// Publish topologically sorts members (dependencies before dependents,
// per their LocalPath edges to sibling members) and publishes each
// exactly once in that order. Before publishing a member, any
// dependency pointing at an already-published sibling is rewritten
// from a LocalPath into a Registry reference pinned to the sibling's
// just-published version, so the uploaded manifest never references a
// filesystem path outside the tarball. Returns the version each member
// was published at.
func Publish(ctx context.Context, ws *Workspace, target PublishTarget, publish PublishFunc, hooks Hooks) (map[string]version.Version, error) {
	order, err := ws.topoOrder()
	if err != nil {
		return nil, err
	}

	published := make(map[string]version.Version, len(order))
	byID := make(map[string]Member, len(ws.Members))
	for _, m := range ws.Members {
		byID[m.ID] = m
	}

	for _, id := range order {
		m := byID[id]
		effective := rewriteLocalDeps(m.Manifest, ws, target, published)
		m.Manifest = effective

		emit(hooks, Event{Phase: "publishing", ID: m.ID, Msg: m.Manifest.Package.Version.String()})
		v, err := publish(ctx, m, target)
		if err != nil {
			emit(hooks, Event{Phase: "error", ID: m.ID, Msg: err.Error()})
			return nil, fmt.Errorf("publish member %q: %w", m.ID, err)
		}
		published[m.ID] = v
	}

	emit(hooks, Event{Phase: "done"})
	return published, nil
}

// memberIndex maps a filesystem path (as an absolute path) to the
// member it belongs to, used to recognize a LocalPath dependency that
// targets a sibling workspace member rather than an external package.
func (ws *Workspace) memberIndex() map[string]string {
	byPath := make(map[string]string, len(ws.Members))
	for _, m := range ws.Members {
		byPath[m.Path] = m.ID
	}
	return byPath
}

// topoOrder returns member ids ordered so that every sibling a member
// depends on via LocalPath comes before it, using a DFS post-order
// walk grounded on the teacher's index resolver's topoOrder. A
// visiting guard distinct from the seen set detects a true cycle among
// members and reports it as WorkspaceCycle rather than silently
// truncating the walk the way graph.Build tolerates package cycles.
func (ws *Workspace) topoOrder() ([]string, error) {
	byPath := ws.memberIndex()
	byID := make(map[string]Member, len(ws.Members))
	for _, m := range ws.Members {
		byID[m.ID] = m
	}

	order := make([]string, 0, len(ws.Members))
	seen := make(map[string]bool, len(ws.Members))
	visiting := make(map[string]bool, len(ws.Members))
	var stack []string

	var dfs func(id string) error
	dfs = func(id string) error {
		if seen[id] {
			return nil
		}
		if visiting[id] {
			return &WorkspaceCycle{Members: append(append([]string(nil), stack...), id)}
		}
		visiting[id] = true
		stack = append(stack, id)

		m := byID[id]
		for _, dep := range m.Manifest.Dependencies {
			if !dep.IsLocal() {
				continue
			}
			siblingPath, err := filepath.Abs(filepath.Join(m.Path, dep.Local.Path))
			if err != nil {
				return fmt.Errorf("resolve local dependency of %q: %w", id, err)
			}
			siblingID, isMember := byPath[siblingPath]
			if !isMember {
				continue
			}
			if err := dfs(siblingID); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(visiting, id)
		seen[id] = true
		order = append(order, id)
		return nil
	}

	for _, m := range ws.Members {
		if err := dfs(m.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// rewriteLocalDeps returns a copy of m with every LocalPath dependency
// that resolves to an already-published sibling replaced by an exact
// Registry reference pinned to that sibling's published version.
// Dependencies on non-member paths, and on members not yet published
// in this run, pass through unchanged.
func rewriteLocalDeps(m *manifest.Manifest, ws *Workspace, target PublishTarget, published map[string]version.Version) *manifest.Manifest {
	if len(m.Dependencies) == 0 {
		return m
	}

	byPath := ws.memberIndex()
	memberDir := ""
	for _, mem := range ws.Members {
		if mem.ID == m.Package.ID {
			memberDir = mem.Path
			break
		}
	}

	rewritten := make(map[string]manifest.DependencySource, len(m.Dependencies))
	for id, dep := range m.Dependencies {
		if !dep.IsLocal() {
			rewritten[id] = dep
			continue
		}
		siblingPath, err := filepath.Abs(filepath.Join(memberDir, dep.Local.Path))
		if err != nil {
			rewritten[id] = dep
			continue
		}
		siblingID, isMember := byPath[siblingPath]
		v, wasPublished := published[siblingID]
		if !isMember || !wasPublished {
			rewritten[id] = dep
			continue
		}

		req, err := version.ParseRequirement(version.ExactRequirement(v))
		if err != nil {
			rewritten[id] = dep
			continue
		}
		rewritten[id] = manifest.DependencySource{Registry: &manifest.RegistrySource{
			URL:         target.URL,
			Repository:  target.Repository,
			Requirement: req,
		}}
	}

	out := *m
	out.Dependencies = rewritten
	return &out
}

// restrictedCommands is the set of package-only commands that a
// workspace root rejects, directing the user to a member directory.
var restrictedCommands = map[string]bool{
	"add":     true,
	"remove":  true,
	"package": true,
	"lint":    true,
	"list":    true,
}

// CheckCommand returns NotPackageCommand if cmd is restricted and ws is
// non-nil (the current directory discovered as a workspace root).
func CheckCommand(ws *Workspace, cmd string) error {
	if ws == nil {
		return nil
	}
	if restrictedCommands[cmd] {
		return &NotPackageCommand{Command: cmd}
	}
	return nil
}
