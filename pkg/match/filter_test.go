package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketdeck/pkg/provider"
)

func obj(key string, size int64, modified string) *provider.ObjectDescriptor {
	t, err := time.Parse(time.RFC3339, modified)
	if err != nil {
		panic(err)
	}
	return &provider.ObjectDescriptor{Key: key, Size: size, LastModified: t, IsImage: provider.IsImageKey(key)}
}

func TestCompile_Empty(t *testing.T) {
	c, err := Compile(FilterConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.True(t, c.Keep(obj("anything", 0, "2024-01-01T00:00:00Z")))
	assert.Equal(t, "no filters", c.String())

	c, err = Compile(FilterConfig{Size: &SizeFilterConfig{}, Modified: &DateFilterConfig{}})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCompile_Size(t *testing.T) {
	c, err := Compile(FilterConfig{Size: &SizeFilterConfig{Min: "1KiB", Max: "1MB"}})
	require.NoError(t, err)

	const ts = "2024-01-01T00:00:00Z"
	assert.False(t, c.Keep(obj("a", 1023, ts)))
	assert.True(t, c.Keep(obj("a", 1024, ts)))
	assert.True(t, c.Keep(obj("a", 1_000_000, ts)))
	assert.False(t, c.Keep(obj("a", 1_000_001, ts)))
	assert.Equal(t, "size >= 1024, size <= 1000000", c.String())

	_, err = Compile(FilterConfig{Size: &SizeFilterConfig{Min: "2MB", Max: "1MB"}})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Compile(FilterConfig{Size: &SizeFilterConfig{Max: "lots"}})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestCompile_Modified(t *testing.T) {
	c, err := Compile(FilterConfig{Modified: &DateFilterConfig{After: "2024-01-01", Before: "2024-02-01"}})
	require.NoError(t, err)

	assert.False(t, c.Keep(obj("a", 1, "2023-12-31T23:59:59Z")))
	assert.True(t, c.Keep(obj("a", 1, "2024-01-01T00:00:00Z")))
	assert.True(t, c.Keep(obj("a", 1, "2024-01-31T23:59:59Z")))
	assert.False(t, c.Keep(obj("a", 1, "2024-02-01T00:00:00Z")))

	_, err = Compile(FilterConfig{Modified: &DateFilterConfig{After: "2024-02-01", Before: "2024-01-01"}})
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = Compile(FilterConfig{Modified: &DateFilterConfig{After: "yesterday"}})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCompile_KeyRegex(t *testing.T) {
	c, err := Compile(FilterConfig{KeyRegex: `^2024/\d+\.png$`})
	require.NoError(t, err)
	assert.True(t, c.Keep(obj("2024/01.png", 1, "2024-01-01T00:00:00Z")))
	assert.False(t, c.Keep(obj("2024/a.png", 1, "2024-01-01T00:00:00Z")))

	_, err = Compile(FilterConfig{KeyRegex: "("})
	assert.ErrorIs(t, err, ErrInvalidRegex)
}

func TestCompile_Combined(t *testing.T) {
	c, err := Compile(FilterConfig{
		Size:       &SizeFilterConfig{Min: "10"},
		ImagesOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "size >= 10, images only", c.String())

	assert.True(t, c.Keep(obj("a.png", 10, "2024-01-01T00:00:00Z")))
	assert.False(t, c.Keep(obj("a.txt", 10, "2024-01-01T00:00:00Z")))
	assert.False(t, c.Keep(obj("a.png", 9, "2024-01-01T00:00:00Z")))
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{" 1KB ", 1000, false},
		{"1kib", 1024, false},
		{"1.5MiB", 1572864, false},
		{"2G", 2 * GB, false},
		{"3 gib", 3 * GiB, false},
		{"", 0, true},
		{"MB", 0, true},
		{"-1", 0, true},
		{"1XB", 0, true},
		{"99999999999TiB", 0, true},
		{"9999999999.5TiB", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-01-15T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-01-15T10:30:00.5Z")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, time.Duration(d.Nanosecond()))

	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
