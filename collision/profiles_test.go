package collision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testProfiles = `
profiles:
  - name: chair
    mode: proxy
    center: [0, 0.45, 0]
    extents: [0.25, 0.45, 0.25]
    thresholds:
      vertex_distance_meters: 0.05
      mesh_ratio_threshold: 0.2
  - name: tetra
    mode: mesh
    vertices:
      - [0, 0, 0]
      - [0.3, 0, 0]
      - [0, 0.3, 0]
      - [0, 0, 0.3]
`

func TestParseProfiles(t *testing.T) {
	t.Run("profiles are parsed", func(t *testing.T) {
		profiles, err := ParseProfiles([]byte(testProfiles))
		require.NoError(t, err)
		require.Equal(t, []string{"chair", DefaultProfile, "tetra"}, profiles.Names())

		chair, err := profiles.Get("chair")
		require.NoError(t, err)
		require.Equal(t, Thresholds{
			VertexDistanceMeters: 0.05,
			MeshRatioThreshold:   0.2,
		}, chair.ThresholdsOr(DefaultThresholds()))

		set, err := chair.SampleSet()
		require.NoError(t, err)
		require.Len(t, set, 13)

		tetra, err := profiles.Get("tetra")
		require.NoError(t, err)
		require.Equal(t, DefaultThresholds(), tetra.ThresholdsOr(DefaultThresholds()))

		set, err = tetra.SampleSet()
		require.NoError(t, err)
		require.Len(t, set, 4)
	})

	t.Run("empty name selects the default profile", func(t *testing.T) {
		profiles, err := ParseProfiles(nil)
		require.NoError(t, err)

		p, err := profiles.Get("")
		require.NoError(t, err)
		require.Equal(t, DefaultProfile, p.Name)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := DefaultProfiles().Get("sofa")
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeProfileNotFound))
	})

	t.Run("mesh profile without vertices", func(t *testing.T) {
		_, err := ParseProfiles([]byte("profiles:\n  - name: broken\n    mode: mesh\n"))
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidProfile))
	})

	t.Run("invalid thresholds", func(t *testing.T) {
		_, err := ParseProfiles([]byte("profiles:\n  - name: broken\n    thresholds:\n      mesh_ratio_threshold: 2\n"))
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidProfile))
	})

	t.Run("profile without name", func(t *testing.T) {
		_, err := ParseProfiles([]byte("profiles:\n  - mode: proxy\n"))
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidProfile))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseProfiles([]byte("profiles: ["))
		require.Error(t, err)
	})
}

func TestLoadProfiles(t *testing.T) {
	t.Run("file is loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiles.yaml")
		err := os.WriteFile(path, []byte(testProfiles), 0o600)
		require.NoError(t, err)

		profiles, err := LoadProfiles(path)
		require.NoError(t, err)
		require.Len(t, profiles, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
