package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		text       string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{text: "s3://bucket/key.tar.gz", wantBucket: "bucket", wantKey: "key.tar.gz"},
		{text: "s3://bucket/path/to/key.zip", wantBucket: "bucket", wantKey: "path/to/key.zip"},
		{text: "s3://bucket", wantErr: true},
		{text: "s3://bucket/", wantErr: true},
		{text: "s3:///key", wantErr: true},
		{text: "/local/file.zip", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}
