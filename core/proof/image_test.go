package proof

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/tests"
)

func TestValidateImage(t *testing.T) {
	pngData := testutil.PNG(t)

	tests := []struct {
		name     string
		data     []byte
		maxBytes int64
		wantType string
		wantExt  string
		wantErr  bool
	}{
		{name: "png", data: pngData, wantType: "image/png", wantExt: ".png"},
		{name: "empty", data: nil, wantErr: true},
		{name: "too large", data: pngData, maxBytes: int64(len(pngData) - 1), wantErr: true},
		{name: "gif", data: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), wantErr: true},
		{name: "text", data: []byte("definitely not an image"), wantErr: true},
		{name: "broken jpeg", data: append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0}, 32)...), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctype, ext, err := ValidateImage(tt.data, tt.maxBytes)
			if tt.wantErr {
				assert.True(t, core.IsValidation(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantType, ctype)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}
