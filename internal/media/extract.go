// Package media extracts audio tracks from video files via ffmpeg.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// ffmpegAvailable caches whether ffmpeg is in PATH (checked once at startup).
var ffmpegAvailable *bool

// CheckFFmpeg checks if ffmpeg is available in PATH. Call once at startup.
func CheckFFmpeg() bool {
	if ffmpegAvailable != nil {
		return *ffmpegAvailable
	}
	_, err := exec.LookPath("ffmpeg")
	avail := err == nil
	ffmpegAvailable = &avail
	return avail
}

// ExtractAudio extracts the audio track of a video into a 192kbps MP3
// written next to the video file. audioName is the output basename
// ("audio.mp3" by convention). Returns the audio file path.
func ExtractAudio(ctx context.Context, videoPath, audioName string) (string, error) {
	audioPath := filepath.Join(filepath.Dir(videoPath), audioName)

	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs(videoPath, audioPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.Bytes()))
	}
	return audioPath, nil
}

// ffmpegArgs builds the extraction command line:
// strip video (-vn), encode mp3 at 192k, overwrite output (-y).
func ffmpegArgs(videoPath, audioPath string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", "192k",
		audioPath,
	}
}

// lastLine returns the final non-empty line of ffmpeg's stderr, which
// carries the actual failure message below pages of banner output.
func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := bytes.TrimSpace(lines[i]); len(line) > 0 {
			return string(line)
		}
	}
	return ""
}
