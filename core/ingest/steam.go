package ingest

import (
	"os"
	"path"
	"regexp"
	"strings"
)

// =============================================================================
// Steam library detection
// =============================================================================
//
// Steam installs follow a fixed layout:
//
//	{drive}/SteamLibrary/steamapps/common/{installdir}/...
//
// The appmanifest_*.acf files beside common/ carry the appid and the
// official game name, and librarycache/ may hold a local cover image.

// SteamGame describes an executable identified as a Steam game.
type SteamGame struct {
	AppID string
	Name  string

	// CoverPath is a local cover found in librarycache, best first:
	// header (460x215), library_600x900, then logo. Empty when none exist.
	CoverPath string
}

const steamMarker = "/steamapps/common/"

// DetectSteamGame reports whether the executable lives in a Steam library,
// resolving its manifest when it does. Unreadable manifests mean not
// detected; detection is best-effort.
func DetectSteamGame(exePath string) (SteamGame, bool) {
	norm := strings.ReplaceAll(exePath, `\`, "/")
	markerIdx := strings.Index(strings.ToLower(norm), steamMarker)
	if markerIdx < 0 {
		return SteamGame{}, false
	}

	steamappsDir := norm[:markerIdx+len("/steamapps")]

	rest := norm[markerIdx+len(steamMarker):]
	installDir, _, _ := strings.Cut(rest, "/")
	if installDir == "" {
		return SteamGame{}, false
	}

	appID, name, ok := findManifest(steamappsDir, installDir)
	if !ok {
		return SteamGame{}, false
	}

	return SteamGame{
		AppID:     appID,
		Name:      name,
		CoverPath: findCover(steamappsDir, appID),
	}, true
}

// findManifest scans appmanifest_*.acf files for one whose installdir
// matches the game folder.
func findManifest(steamappsDir, installDir string) (appID, name string, ok bool) {
	entries, err := os.ReadDir(steamappsDir)
	if err != nil {
		return "", "", false
	}

	needle := strings.ToLower(installDir)
	for _, entry := range entries {
		fname := entry.Name()
		if !strings.HasPrefix(fname, "appmanifest_") || !strings.HasSuffix(fname, ".acf") {
			continue
		}

		content, err := os.ReadFile(path.Join(steamappsDir, fname))
		if err != nil {
			continue
		}

		dir := acfField(string(content), "installdir")
		if dir == "" || strings.ToLower(dir) != needle {
			continue
		}

		appID = acfField(string(content), "appid")
		name = acfField(string(content), "name")
		if appID != "" && name != "" {
			return appID, name, true
		}
	}
	return "", "", false
}

// coverCandidates lists librarycache image names by preference.
func coverCandidates(appID string) []string {
	return []string{
		appID + "_header.jpg",
		appID + "_library_600x900.jpg",
		appID + "_logo.png",
	}
}

func findCover(steamappsDir, appID string) string {
	libCache := path.Join(steamappsDir, "librarycache")
	for _, name := range coverCandidates(appID) {
		p := path.Join(libCache, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// acfFieldPattern matches ACF key/value pairs: "field"  "value".
var acfFieldPattern = regexp.MustCompile(`(?i)"(appid|name|installdir)"\s+"([^"]*)"`)

// acfField extracts one field value from ACF content.
func acfField(content, field string) string {
	for _, m := range acfFieldPattern.FindAllStringSubmatch(content, -1) {
		if strings.EqualFold(m[1], field) {
			return m[2]
		}
	}
	return ""
}
