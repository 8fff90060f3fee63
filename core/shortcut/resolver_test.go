package shortcut

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsShortcut(t *testing.T) {
	assert.True(t, IsShortcut("Google Chrome.lnk"))
	assert.True(t, IsShortcut("UPPER.LNK"))
	assert.False(t, IsShortcut("chrome.exe"))
	assert.False(t, IsShortcut("archive.lnk.bak"))
	assert.False(t, IsShortcut(""))
}

func TestDisplayNameOf(t *testing.T) {
	assert.Equal(t, "Google Chrome", DisplayNameOf("Google Chrome.lnk"))
	assert.Equal(t, "steam", DisplayNameOf("steam.lnk"))
	assert.Equal(t, "noext", DisplayNameOf("noext"))
}
