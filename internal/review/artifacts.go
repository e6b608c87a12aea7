package review

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/fsutil"
)

// ArtifactsDirName is the artifacts sub-directory of the run directory.
const ArtifactsDirName = "artifacts"

const maxArtifactSuggestions = 3

var artifactNamePattern = regexp.MustCompile(`^iter([0-9]{2,})_phase([1-9])_(.+)\.md$`)

// ArtifactRef identifies one stored artifact.
type ArtifactRef struct {
	Name      string     `json:"name"`
	Iteration int        `json:"iteration"`
	Phase     core.Phase `json:"phase"`
	Agent     string     `json:"agent"`
	Role      string     `json:"role"`
	Size      int64      `json:"size"`
	ModTime   time.Time  `json:"mod_time"`
}

// ArtifactStore keeps the raw agent outputs of a run, one markdown file per
// iteration, phase and agent.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates a store rooted at dir. The directory is created on
// first write.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Dir returns the artifacts directory.
func (s *ArtifactStore) Dir() string { return s.dir }

// Name returns the file name of an artifact: iter{NN}_phase{P}_{agent}_{role}.md.
func (s *ArtifactStore) Name(iteration int, phase core.Phase, agent string) string {
	return fmt.Sprintf("iter%02d_phase%d_%s_%s.md", iteration, int(phase), agent, phase.String())
}

// Path returns the absolute location of an artifact.
func (s *ArtifactStore) Path(iteration int, phase core.Phase, agent string) string {
	return filepath.Join(s.dir, s.Name(iteration, phase, agent))
}

// Write stores content atomically and returns the artifact path.
func (s *ArtifactStore) Write(iteration int, phase core.Phase, agent, content string) (string, error) {
	if !core.ValidAgentName(agent) {
		return "", core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("invalid agent name %q", agent))
	}
	path := s.Path(iteration, phase, agent)
	if err := fsutil.AtomicWriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// Read returns the content of an artifact. A missing file is reported as
// MissingArtifact.
func (s *ArtifactStore) Read(iteration int, phase core.Phase, agent string) (string, error) {
	return s.readPath(s.Path(iteration, phase, agent))
}

// ReadName reads an artifact by file name. Names that do not follow the
// artifact scheme are rejected before touching the filesystem.
func (s *ArtifactStore) ReadName(name string) (string, error) {
	if _, ok := ParseArtifactName(name); !ok {
		return "", core.ErrNotFound("artifact", name)
	}
	return s.readPath(filepath.Join(s.dir, name))
}

func (s *ArtifactStore) readPath(path string) (string, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", core.ErrMissingArtifact(path).WithCause(err)
		}
		return "", fmt.Errorf("reading artifact %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}

// List returns the stored artifacts ordered by iteration, phase and agent. A
// missing directory yields an empty list.
func (s *ArtifactStore) List() ([]ArtifactRef, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ArtifactRef{}, nil
		}
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	refs := make([]ArtifactRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ref, ok := ParseArtifactName(e.Name())
		if !ok {
			continue
		}
		if info, err := e.Info(); err == nil {
			ref.Size = info.Size()
			ref.ModTime = info.ModTime()
		}
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.Iteration != b.Iteration {
			return a.Iteration < b.Iteration
		}
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		return a.Agent < b.Agent
	})
	return refs, nil
}

// Suggest returns stored artifact names close to name.
func (s *ArtifactStore) Suggest(name string) []string {
	refs, err := s.List()
	if err != nil || strings.TrimSpace(name) == "" {
		return nil
	}
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}

	var out []string
	for _, m := range fuzzy.Find(name, names) {
		out = append(out, m.Str)
		if len(out) == maxArtifactSuggestions {
			break
		}
	}
	return out
}

// Clear removes every stored artifact.
func (s *ArtifactStore) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clearing artifacts: %w", err)
	}
	return nil
}

// ParseArtifactName decodes a file name produced by ArtifactStore.Name.
func ParseArtifactName(name string) (ArtifactRef, bool) {
	m := artifactNamePattern.FindStringSubmatch(name)
	if m == nil {
		return ArtifactRef{}, false
	}
	iteration, err := strconv.Atoi(m[1])
	if err != nil || iteration < 1 {
		return ArtifactRef{}, false
	}
	phaseNum, _ := strconv.Atoi(m[2])
	phase := core.Phase(phaseNum)
	if !phase.Valid() {
		return ArtifactRef{}, false
	}

	agent, ok := strings.CutSuffix(m[3], "_"+phase.String())
	if !ok || !core.ValidAgentName(agent) {
		return ArtifactRef{}, false
	}
	return ArtifactRef{
		Name:      name,
		Iteration: iteration,
		Phase:     phase,
		Agent:     agent,
		Role:      phase.String(),
	}, true
}
