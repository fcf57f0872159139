package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainchat/syncd/internal/models"
)

func TestComputeRefDeterministic(t *testing.T) {
	data := []byte("hello world")
	ref1, err := ComputeRef(data)
	require.NoError(t, err)
	ref2, err := ComputeRef(data)
	require.NoError(t, err)
	require.Equal(t, ref1, ref2)
	require.True(t, ValidRef(ref1))

	other, err := ComputeRef([]byte("other"))
	require.NoError(t, err)
	require.NotEqual(t, ref1, other)
}

func TestValidRef(t *testing.T) {
	require.False(t, ValidRef("not-a-cid"))
	require.False(t, ValidRef(""))
}

func TestPlaceholderAvatarURLStable(t *testing.T) {
	a := PlaceholderAvatarURL("alice")
	b := PlaceholderAvatarURL("alice")
	require.Equal(t, a, b)
	require.NotEqual(t, a, PlaceholderAvatarURL("bob"))
}

func TestPlaceholderAvatarURLEscapesSeed(t *testing.T) {
	u := PlaceholderAvatarURL("name with spaces&x")
	require.NotContains(t, u, " ")
	require.NotContains(t, u, "&x")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		wantKind string
		wantErr  error
	}{
		{"photo.png", 1024, models.MessageKindImage, nil},
		{"photo.JPG", 1024, models.MessageKindImage, nil},
		{"doc.pdf", 1024, models.MessageKindFile, nil},
		{"archive.zip", 1024, models.MessageKindFile, nil},
		{"huge.png", 11 * 1024 * 1024, "", models.ErrFileTooLarge},
		{"virus.exe", 1024, "", models.ErrUnsupportedFileType},
		{"noext", 1024, "", models.ErrUnsupportedFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := Validate(tt.name, tt.size, 10)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantKind, kind)
		})
	}
}
