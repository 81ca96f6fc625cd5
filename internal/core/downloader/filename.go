package downloader

import (
	"path/filepath"
	"strings"
)

// forbidden covers characters rejected by at least one filesystem the
// agent runs on. They are replaced rather than dropped so distinct
// titles stay distinct more often.
var forbidden = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
)

// SafeFileName builds the on-disk name for a video: the sanitized title
// plus the extension of the originally uploaded file. The title, not the
// upload name, is what operators see in the player folder.
func SafeFileName(title, originalName string) string {
	name := forbidden.Replace(title)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	if name == "" {
		name = "video"
	}
	return name + strings.ToLower(filepath.Ext(originalName))
}
