package ffmpeg

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[info] Stream mapping:", "info", "Stream mapping:"},
		{"[error] Connection refused", "error", "Connection refused"},
		{"[rtsp @ 0x55] [warning] timeout", "warning", "[rtsp @ 0x55] timeout"},
		{"[dshow @ 0x1] \"Cam\" (video)", "info", "[dshow @ 0x1] \"Cam\" (video)"},
		{"[notalevel] text", "info", "[notalevel] text"},
		{"[info] frame=  1 fps=0.0", "debug", "frame=  1 fps=0.0"},
		{"frame=  120 fps= 30", "debug", "frame=  120 fps= 30"},
		{"[error] Could not find video device", "error", "Could not find video device"},
		{"[", "info", "["},
		{"", "info", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			level, msg := ParseLogLevel(tt.line)
			if level != tt.wantLevel || msg != tt.wantMsg {
				t.Errorf("ParseLogLevel(%q) = (%q, %q), want (%q, %q)", tt.line, level, msg, tt.wantLevel, tt.wantMsg)
			}
		})
	}
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Progress
		ok   bool
	}{
		{
			name: "padded values",
			line: "frame=  120 fps= 30 q=20.0 size=     512kB time=00:00:04.00 bitrate=1048.6kbits/s dup=1 drop=3 speed=1.01x",
			want: Progress{Frame: 120, FPS: 30, Dup: 1, Dropped: 3, Speed: 1.01},
			ok:   true,
		},
		{
			name: "level prefix",
			line: "[info] frame=   12 fps=0.0 q=0.0 size=       0kB time=00:00:00.40 bitrate=   0.0kbits/s speed=0.79x",
			want: Progress{Frame: 12, FPS: 0, Speed: 0.79},
			ok:   true,
		},
		{
			name: "not progress",
			line: "[info] Stream mapping:",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseProgress(tt.line)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseProgress() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
