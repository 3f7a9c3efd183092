package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"fieldui/application/ports"
	pkgerrors "fieldui/pkg/errors"
)

// ScreenSource serves screen definitions from a flat directory. Version
// 1 is the bare screen name, later versions carry a suffix:
//
//	screens/
//	  job_detail.json
//	  job_detail_v2.json
//	  service_report.json
//
// This is the development source; the sync service uses DynamoDB.
type ScreenSource struct {
	dir string
}

// NewScreenSource creates a file-backed screen source
func NewScreenSource(dir string) (*ScreenSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("screen directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("screen directory %q is not a directory", dir)
	}
	return &ScreenSource{dir: dir}, nil
}

var _ ports.ScreenSource = (*ScreenSource)(nil)

// HighestVersion returns the highest version <= maxVersion on disk,
// 0 when the screen has no eligible version
func (s *ScreenSource) HighestVersion(ctx context.Context, screen string, maxVersion int) (int, error) {
	versions, err := s.versions(screen)
	if err != nil {
		return 0, err
	}

	best := 0
	for _, v := range versions {
		if v <= maxVersion && v > best {
			best = v
		}
	}
	return best, nil
}

// Fetch reads the raw JSON for an exact screen version
func (s *ScreenSource) Fetch(ctx context.Context, screen string, version int) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, screenFileName(screen, version)))
	if err != nil && os.IsNotExist(err) && version == 1 {
		// Authors sometimes write the v1 suffix explicitly
		data, err = os.ReadFile(filepath.Join(s.dir, fmt.Sprintf("%s_v1.json", screen)))
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("screen %q version %d", screen, version))
		}
		return nil, fmt.Errorf("failed to read screen file: %w", err)
	}
	return data, nil
}

// List returns all screen names with at least one version file
func (s *ScreenSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list screen directory: %w", err)
	}

	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if screen, _, ok := splitScreenFile(entry.Name()); ok {
			seen[screen] = struct{}{}
		}
	}

	screens := make([]string, 0, len(seen))
	for screen := range seen {
		screens = append(screens, screen)
	}
	sort.Strings(screens)
	return screens, nil
}

// versions lists the version numbers available for a screen
func (s *ScreenSource) versions(screen string) ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list screen directory: %w", err)
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, v, ok := splitScreenFile(entry.Name())
		if ok && name == screen {
			versions = append(versions, v)
		}
	}
	return versions, nil
}

// screenFileName builds the file name for a screen version
func screenFileName(screen string, version int) string {
	if version == 1 {
		return screen + ".json"
	}
	return fmt.Sprintf("%s_v%d.json", screen, version)
}

// splitScreenFile resolves a file name to its screen and version. The
// bare name is version 1; a trailing "_v<N>" names version N. A suffix
// that does not parse belongs to the screen name itself.
func splitScreenFile(name string) (string, int, bool) {
	if !strings.HasSuffix(name, ".json") {
		return "", 0, false
	}
	base := strings.TrimSuffix(name, ".json")
	if base == "" {
		return "", 0, false
	}

	if idx := strings.LastIndex(base, "_v"); idx > 0 {
		if v, err := strconv.Atoi(base[idx+2:]); err == nil && v >= 1 {
			return base[:idx], v, true
		}
	}
	return base, 1, true
}
