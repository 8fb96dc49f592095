package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var speakingMimeTypes = []string{MimeAudio, MimeVideo, MimeOgg, MimeOctetStream}

func TestValidateMimeType(t *testing.T) {
	wavHeader := append([]byte("RIFF\x24\x00\x00\x00WAVE"), make([]byte, 32)...)

	tests := []struct {
		name    string
		payload []byte
		want    string
		wantErr bool
	}{
		{"wav 音频头", wavHeader, "audio/wave", false},
		{"ogg 容器头", append([]byte("OggS"), make([]byte, 32)...), "application/ogg", false},
		{"无法嗅探的二进制按流放行", []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0xfd}, "application/octet-stream", false},
		{"HTML 冒充音频被拦截", []byte("<html><body>hi</body></html>"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMimeType(bytes.NewReader(tt.payload), speakingMimeTypes)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsAllowedAudioExtension(t *testing.T) {
	assert.True(t, IsAllowedAudioExtension("sample.mp3"))
	assert.True(t, IsAllowedAudioExtension("Sample.WAV"))
	assert.True(t, IsAllowedAudioExtension("clip.webm"))
	assert.False(t, IsAllowedAudioExtension("notes.txt"))
	assert.False(t, IsAllowedAudioExtension("noext"))
}
