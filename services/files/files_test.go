package filesvc

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/college/core"
)

func mockNow(t *testing.T) {
	orig := NowFunc
	NowFunc = func() time.Time { return time.UnixMilli(1700000000123) }
	t.Cleanup(func() { NowFunc = orig })
}

func TestStoredName(t *testing.T) {
	mockNow(t)

	tests := []struct {
		in, want string
	}{
		{in: "photo.png", want: "1700000000123-photo.png"},
		{in: "../../etc/passwd", want: "1700000000123-passwd"},
		{in: `C:\Users\ravi\My Photo (1).JPG`, want: "1700000000123-My_Photo_1_.JPG"},
		{in: "...", want: "1700000000123-file"},
		{in: "", want: "1700000000123-file"},
		{in: strings.Repeat("a", 150) + ".pdf", want: "1700000000123-" + strings.Repeat("a", 96) + ".pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StoredName(tt.in))
		})
	}
}

func TestLocalStorage(t *testing.T) {
	mockNow(t)

	conf := core.NewTestConfig()
	conf.Uploads.Dir = t.TempDir()
	conf.Uploads.BaseURL = "/uploads/"

	st, err := NewLocalStorage(conf)
	require.NoError(t, err)
	for _, dir := range Dirs {
		assert.DirExists(t, filepath.Join(conf.Uploads.Dir, dir))
	}

	saved, err := st.Save(context.Background(), DirNotices, "exam.pdf", strings.NewReader("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, core.StoredFile{
		Name:        "1700000000123-exam.pdf",
		URL:         "/uploads/notices/1700000000123-exam.pdf",
		ContentType: "application/pdf",
	}, saved)

	content, err := os.ReadFile(filepath.Join(conf.Uploads.Dir, DirNotices, saved.Name))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(content))

	// same name in the same millisecond is not overwritten
	_, err = st.Save(context.Background(), DirNotices, "exam.pdf", strings.NewReader("other"), "")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = st.Save(ctx, DirStudents, "x.png", strings.NewReader(""), "")
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	mockNow(t)

	conf := core.NewTestConfig()
	conf.Uploads.S3Bucket = "college"
	conf.Uploads.S3Region = "ap-south-1"

	t.Run("aws", func(t *testing.T) {
		client := new(fakeS3)
		st := newS3Storage(client, conf)

		saved, err := st.Save(context.Background(), DirStudents, "ravi.png", strings.NewReader("png"), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "https://college.s3.ap-south-1.amazonaws.com/students/1700000000123-ravi.png", saved.URL)

		require.Len(t, client.inputs, 1)
		assert.Equal(t, "college", aws.ToString(client.inputs[0].Bucket))
		assert.Equal(t, "students/1700000000123-ravi.png", aws.ToString(client.inputs[0].Key))
		assert.Equal(t, "image/png", aws.ToString(client.inputs[0].ContentType))
		assert.Equal(t, "png", client.bodies[0])
	})

	t.Run("custom endpoint", func(t *testing.T) {
		conf := *conf
		conf.Uploads.S3Endpoint = "http://localhost:9000/"
		st := newS3Storage(new(fakeS3), &conf)
		assert.Equal(t, "http://localhost:9000/college/notices/a.pdf", st.URL(DirNotices, "a.pdf"))
	})

	t.Run("upload error", func(t *testing.T) {
		st := newS3Storage(&fakeS3{err: errors.New("denied")}, conf)
		_, err := st.Save(context.Background(), DirNotices, "a.pdf", strings.NewReader(""), "")
		assert.ErrorContains(t, err, "denied")
	})
}
