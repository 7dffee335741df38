package media

import (
	"reflect"
	"testing"
)

func TestFFmpegArgs(t *testing.T) {
	got := ffmpegArgs("/meetings/standup.mp4", "/meetings/audio.mp3")
	want := []string{
		"-y",
		"-i", "/meetings/standup.mp4",
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", "192k",
		"/meetings/audio.mp3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ffmpegArgs = %v, want %v", got, want)
	}
}

func TestLastLine(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"only line", "only line"},
		{"banner\nmore banner\nerror: no such file\n", "error: no such file"},
		{"error\n\n  \n", "error"},
	}
	for _, c := range cases {
		if got := lastLine([]byte(c.in)); got != c.want {
			t.Errorf("lastLine(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
