package media

import "strings"

var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".mov": true, ".webm": true, ".flv": true,
	".avi": true, ".m4v": true, ".3gp": true, ".ts": true, ".m2ts": true,
	".ogv": true, ".m3u8": true,
}

var audioExts = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".ogg": true, ".opus": true,
	".flac": true, ".wav": true,
}

// IsVideoName reports whether the filename looks like a video file.
func IsVideoName(name string) bool {
	return videoExts[lowerExt(name)]
}

// IsAudioName reports whether the filename looks like an audio file.
func IsAudioName(name string) bool {
	return audioExts[lowerExt(name)]
}

// IsPlayableContentType reports whether the content type indicates media that
// can be streamed straight to a file.
func IsPlayableContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/")
}

func lowerExt(name string) string {
	name = strings.ToLower(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
