package collision

import (
	"os"
	"sort"

	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ErrTypeProfileNotFound = "profile-not-found"
	ErrTypeInvalidProfile  = "invalid-profile"

	// DefaultProfile is the profile used when a query names none.
	DefaultProfile = "default"
)

// Profile is a named proxy geometry that clients can refer to instead of
// sending their vertices with each query.
type Profile struct {
	Name       string       `yaml:"name"`
	Mode       ColliderMode `yaml:"mode"`
	Center     [3]float32   `yaml:"center"`
	Extents    [3]float32   `yaml:"extents"`
	Vertices   [][3]float32 `yaml:"vertices"`
	Thresholds *Thresholds  `yaml:"thresholds"`
}

func (p Profile) Geometry() Geometry {
	vertices := make([]geometry.Vector3f, len(p.Vertices))
	for i, v := range p.Vertices {
		vertices[i] = geometry.NewVector3fFromArray(v)
	}

	return Geometry{
		Center:   geometry.NewVector3fFromArray(p.Center),
		Extents:  geometry.NewVector3fFromArray(p.Extents),
		Vertices: vertices,
	}
}

func (p Profile) SampleSet() (SampleSet, error) {
	return SampleSetFor(p.Mode, p.Geometry())
}

// ThresholdsOr returns the profile thresholds, or fallback when the profile
// does not override them.
func (p Profile) ThresholdsOr(fallback Thresholds) Thresholds {
	if p.Thresholds == nil {
		return fallback
	}
	return *p.Thresholds
}

// Profiles is a set of profiles indexed by name.
type Profiles map[string]Profile

// DefaultProfiles returns the built-in profiles: a 20cm proxy box resting on
// its origin.
func DefaultProfiles() Profiles {
	return Profiles{
		DefaultProfile: {
			Name:    DefaultProfile,
			Mode:    ModeProxy,
			Center:  [3]float32{0, 0.1, 0},
			Extents: [3]float32{0.1, 0.1, 0.1},
		},
	}
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads profiles from a YAML file. The built-in profiles are
// kept unless the file redefines them.
func LoadProfiles(path string) (Profiles, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading profiles file failed").
			WithTag("path", path).
			Wrap(err)
	}

	profiles, err := ParseProfiles(b)
	if err != nil {
		return nil, errors.New("parsing profiles file failed").
			WithTag("path", path).
			Wrap(err)
	}
	return profiles, nil
}

func ParseProfiles(b []byte) (Profiles, error) {
	var file profilesFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, err
	}

	profiles := DefaultProfiles()
	for _, p := range file.Profiles {
		if p.Name == "" {
			return nil, errors.New("profile without name").
				WithType(ErrTypeInvalidProfile)
		}
		if _, err := p.SampleSet(); err != nil {
			return nil, errors.New("invalid profile").
				WithType(ErrTypeInvalidProfile).
				WithTag("profile", p.Name).
				Wrap(err)
		}
		if p.Thresholds != nil {
			if err := p.Thresholds.Validate(); err != nil {
				return nil, errors.New("invalid profile thresholds").
					WithType(ErrTypeInvalidProfile).
					WithTag("profile", p.Name).
					Wrap(err)
			}
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

func (p Profiles) Get(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}

	profile, ok := p[name]
	if !ok {
		return Profile{}, errors.New("profile not found").
			WithType(ErrTypeProfileNotFound).
			WithTag("profile", name)
	}
	return profile, nil
}

func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
