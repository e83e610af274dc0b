package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

func validProfilesYAML() string {
	return `version: "1.0"
active: local
profiles:
  - name: photos
    type: S3
    bucket: photos
    region: us-east-1
    path: /albums/2024/
  - name: local
    type: minio
    endpoint: http://localhost:9000
    bucket: scratch
    access_key_id: minioadmin
    secret_access_key: minioadmin
  - name: disk
    type: file
    base_dir: /srv/uploads
`
}

func validProfilesJSON() string {
	return `{
  "version": "1.0",
  "profiles": [
    {"name": "photos", "type": "s3", "bucket": "photos", "force_path_style": true}
  ]
}`
}

func TestLoadFromBytes_YAML(t *testing.T) {
	f, err := LoadFromBytes([]byte(validProfilesYAML()), "profiles.yaml")
	require.NoError(t, err)

	assert.Equal(t, "1.0", f.Version)
	assert.Equal(t, "local", f.Active)
	assert.Equal(t, []string{"photos", "local", "disk"}, f.Names())

	photos := f.Profiles[0]
	assert.Equal(t, provider.ProviderS3, photos.Type)
	assert.Equal(t, "albums/2024", photos.Path)
	assert.Equal(t, "albums/2024/", photos.Prefix())

	assert.Equal(t, "/srv/uploads", f.Profiles[2].BaseDir)
}

func TestLoadFromBytes_JSON(t *testing.T) {
	f, err := LoadFromBytes([]byte(validProfilesJSON()), "profiles.json")
	require.NoError(t, err)

	assert.Equal(t, "photos", f.Active)
	require.NotNil(t, f.Profiles[0].ForcePathStyle)
	assert.True(t, *f.Profiles[0].ForcePathStyle)
}

func TestLoadFromBytes_UnknownExtensionTriesYAMLThenJSON(t *testing.T) {
	_, err := LoadFromBytes([]byte(validProfilesYAML()), "profiles.conf")
	require.NoError(t, err)

	_, err = LoadFromBytes([]byte(validProfilesJSON()), "")
	require.NoError(t, err)
}

func TestLoadFromBytes_UnknownTypeAccepted(t *testing.T) {
	data := `version: "1.0"
profiles:
  - name: legacy
    type: ftp
`
	f, err := LoadFromBytes([]byte(data), "profiles.yaml")
	require.NoError(t, err)
	assert.Equal(t, provider.ProviderType("ftp"), f.Profiles[0].Type)
}

func TestLoadFromBytes_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{
			name:    "empty",
			data:    "  \n",
			wantMsg: "empty",
		},
		{
			name: "unknown field",
			data: `version: "1.0"
profiles:
  - name: photos
    type: s3
    bucket: photos
    acl: public-read
`,
			wantMsg: "/profiles/0",
		},
		{
			name: "s3 without bucket",
			data: `version: "1.0"
profiles:
  - name: photos
    type: s3
`,
			wantMsg: "bucket",
		},
		{
			name: "file without base_dir",
			data: `version: "1.0"
profiles:
  - name: disk
    type: file
`,
			wantMsg: "base_dir",
		},
		{
			name: "no profiles",
			data: `version: "1.0"
profiles: []
`,
			wantMsg: "/profiles",
		},
		{
			name: "duplicate names",
			data: `version: "1.0"
profiles:
  - name: a
    type: s3
    bucket: one
  - name: a
    type: s3
    bucket: two
`,
			wantMsg: "duplicate profile name",
		},
		{
			name: "active not defined",
			data: `version: "1.0"
active: missing
profiles:
  - name: a
    type: s3
    bucket: one
`,
			wantMsg: "active profile",
		},
		{
			name:    "malformed yaml",
			data:    "version: [\n",
			wantMsg: "YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.data), "profiles.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadFromBytes_ValidationErrorsUnwrap(t *testing.T) {
	data := `version: "1.0"
profiles:
  - name: photos
    type: s3
`
	_, err := LoadFromBytes([]byte(data), "profiles.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.NotEmpty(t, verrs)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validProfilesYAML()), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Profiles, 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadFromReader(t *testing.T) {
	f, err := LoadFromReader(strings.NewReader(validProfilesJSON()), "profiles.json")
	require.NoError(t, err)
	assert.Equal(t, "photos", f.Profiles[0].Name)
}

func TestFile_Select(t *testing.T) {
	f, err := LoadFromBytes([]byte(validProfilesYAML()), "profiles.yaml")
	require.NoError(t, err)

	active, err := f.Select("")
	require.NoError(t, err)
	assert.Equal(t, "local", active.Name)

	photos, err := f.Select(" photos ")
	require.NoError(t, err)
	assert.Equal(t, "photos", photos.Bucket)

	_, err = f.Select("nope")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFile_ActiveProfile_Empty(t *testing.T) {
	var f File
	f.ApplyDefaults()

	_, err := f.ActiveProfile()
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestValidationErrors_Error(t *testing.T) {
	one := ValidationErrors{{Path: "/active", Message: "bad"}}
	assert.Equal(t, "/active: bad", one.Error())

	two := ValidationErrors{{Path: "/a", Message: "x"}, {Message: "y"}}
	assert.Equal(t, "profiles validation failed with 2 errors:\n  - /a: x\n  - y", two.Error())

	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
}
