package local_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"njcrashes/internal/domain"
	"njcrashes/internal/port"
	"njcrashes/internal/storage/local"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := local.NewFromFs(afero.NewMemMapFs(), "/data")

	out, err := store.Upload(ctx, port.UploadInput{
		Bucket: "nj-crashes",
		Key:    "njdot/tables/2019/Accidents.csv",
		Body:   strings.NewReader("a,b\n1,2\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "file:///data/nj-crashes/njdot/tables/2019/Accidents.csv", out.Location)

	data, err := store.Download(ctx, "nj-crashes", "njdot/tables/2019/Accidents.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	u, err := store.GetPresignedURL(ctx, "nj-crashes", "njdot/tables/2019/Accidents.csv", 60)
	require.NoError(t, err)
	assert.Equal(t, out.Location, u)

	require.NoError(t, store.Delete(ctx, "nj-crashes", "njdot/tables/2019/Accidents.csv"))
	_, err = store.Download(ctx, "nj-crashes", "njdot/tables/2019/Accidents.csv")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// deleting a missing object is not an error
	assert.NoError(t, store.Delete(ctx, "nj-crashes", "missing"))
}

func TestLocalStorage_KeysCannotEscapeBucket(t *testing.T) {
	ctx := context.Background()
	mem := afero.NewMemMapFs()
	store := local.NewFromFs(mem, "/data")

	_, err := store.Upload(ctx, port.UploadInput{Bucket: "b", Key: "../../etc/passwd", Body: strings.NewReader("x")})
	assert.Error(t, err)
	exists, err := afero.Exists(mem, "/etc/passwd")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Download(ctx, "", "k")
	assert.Error(t, err)
}

func TestNewLocalStorage(t *testing.T) {
	dir := t.TempDir()
	store, err := local.NewLocalStorage(dir)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Upload(ctx, port.UploadInput{Bucket: "b", Key: "x/y.txt", Body: strings.NewReader("hello")})
	require.NoError(t, err)
	data, err := store.Download(ctx, "b", "x/y.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
