package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	name := ObjectName("team-a", now, "HD 0001234.PDF")
	assert.Regexp(t, regexp.MustCompile(`^team-a/2024/03/[0-9a-f-]{36}\.pdf$`), name)

	assert.Regexp(t, `^default/2024/03/[0-9a-f-]{36}\.pdf$`, ObjectName("", now, "scan"))
	assert.NotEqual(t, ObjectName("a", now, "x.pdf"), ObjectName("a", now, "x.pdf"))
}

func TestTrimBucket(t *testing.T) {
	BucketName = "hoadon"
	assert.Equal(t, "a/2024/03/x.pdf", trimBucket("hoadon/a/2024/03/x.pdf"))
	assert.Equal(t, "a/2024/03/x.pdf", trimBucket("a/2024/03/x.pdf"))
}

func TestNoStorage(t *testing.T) {
	Client = nil
	ctx := context.Background()

	_, err := Upload(ctx, "a", "x.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrNoStorage)
	_, err = Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNoStorage)
	_, err = Presign(ctx, "x")
	assert.ErrorIs(t, err, ErrNoStorage)
	assert.ErrorIs(t, Delete(ctx, "x"), ErrNoStorage)
}
