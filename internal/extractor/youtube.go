package extractor

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
)

var youtubeIDRe = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`)

// YouTube is a native engine for YouTube URLs. It avoids the subprocess
// round-trip of the generic engine.
type YouTube struct {
	client youtube.Client
}

// NewYouTube creates the native YouTube engine.
func NewYouTube() *YouTube {
	return &YouTube{client: youtube.Client{}}
}

func (e *YouTube) Supports(url string) bool {
	return youtubeIDRe.MatchString(url)
}

func (e *YouTube) ListFormats(ctx context.Context, url string) (*Info, error) {
	video, err := e.getVideo(ctx, url)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Title:       video.Title,
		DurationSec: video.Duration.Seconds(),
	}

	if len(video.Thumbnails) > 0 {
		// Thumbnails are ordered small to large
		info.ThumbnailURL = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	for i := range video.Formats {
		f := &video.Formats[i]
		if !strings.Contains(f.MimeType, "video/mp4") {
			continue
		}
		if f.QualityLabel == "" {
			continue
		}

		info.Formats = append(info.Formats, Format{
			ID:       strconv.Itoa(f.ItagNo),
			Ext:      "mp4",
			Height:   f.Height,
			Size:     f.ContentLength,
			HasVideo: true,
			HasAudio: f.AudioChannels > 0,
		})
	}

	return info, nil
}

// Fetch streams the chosen itag to outputBase.mp4 and returns the path.
func (e *YouTube) Fetch(ctx context.Context, url, formatID, outputBase string) (string, error) {
	video, err := e.getVideo(ctx, url)
	if err != nil {
		return "", err
	}

	format, err := e.pickFormat(video, formatID)
	if err != nil {
		return "", err
	}

	stream, _, err := e.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	outPath := outputBase + ".mp4"
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, stream); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("failed to download stream: %w", err)
	}

	return outPath, nil
}

func (e *YouTube) getVideo(ctx context.Context, url string) (*youtube.Video, error) {
	matches := youtubeIDRe.FindStringSubmatch(url)
	if len(matches) < 2 {
		return nil, fmt.Errorf("not a youtube url: %s", url)
	}

	video, err := e.client.GetVideoContext(ctx, matches[1])
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	return video, nil
}

func (e *YouTube) pickFormat(video *youtube.Video, formatID string) (*youtube.Format, error) {
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		formats = video.Formats
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no formats found")
	}

	var selected *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.Contains(f.MimeType, "video/mp4") {
			continue
		}

		if formatID != "" && strconv.Itoa(f.ItagNo) == formatID {
			return f, nil
		}

		// No explicit choice: prefer the smallest mp4 with audio
		if formatID == "" && (selected == nil || f.ContentLength < selected.ContentLength) {
			selected = f
		}
	}

	if selected == nil {
		selected = &formats[0]
	}
	return selected, nil
}
