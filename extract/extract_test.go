package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-dossier/core"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("report.pdf"))
	assert.True(t, Supported("notes.TXT"))
	assert.True(t, Supported("readme.md"))
	assert.False(t, Supported("image.png"))
	assert.False(t, Supported("archive"))
}

func TestFromUpload_PlainText(t *testing.T) {
	pages, err := FromUpload("notes.txt", strings.NewReader("line one\nline two"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Number)
	assert.Equal(t, "line one\nline two", pages[0].Text)
}

func TestFromUpload_Unsupported(t *testing.T) {
	_, err := FromUpload("photo.jpg", strings.NewReader("not text"))
	assert.ErrorIs(t, err, core.ErrUnsupportedFile)
}

func TestFromUpload_BadPDF(t *testing.T) {
	_, err := FromUpload("broken.pdf", strings.NewReader("definitely not a pdf"))
	assert.Error(t, err)
}
