package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type call struct {
	name string
	args []string
}

type recorder struct {
	calls []call
	out   []byte
	err   error
}

func (r *recorder) run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, call{name: name, args: args})
	return r.out, r.err
}

func (r *recorder) joined() string {
	if len(r.calls) == 0 {
		return ""
	}
	return strings.Join(r.calls[len(r.calls)-1].args, " ")
}

func TestFadeOut(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "afade=t=out:st=29.000:d=1.000"},
		{500 * time.Millisecond, "afade=t=out:st=0.000:d=0.500"},
		{0, "afade=t=out:st=0.000:d=0.000"},
	}
	for _, tt := range tests {
		if got := fadeOut(tt.d); got != tt.want {
			t.Fatalf("fadeOut(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestArgs(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		do   func(a *Adapter) error
		want []string
	}{
		{
			name: "cut",
			do:   func(a *Adapter) error { return a.Cut(ctx, "in.mp4", 1500*time.Millisecond, 10*time.Second, "out.mp4") },
			want: []string{"-ss 1.500 -to 10.000 -i in.mp4", "-c:v libx264 -preset fast -crf 23"},
		},
		{
			name: "extract audio",
			do:   func(a *Adapter) error { return a.ExtractAudio(ctx, "clip.mp4", "a.wav") },
			want: []string{"-vn -acodec pcm_s16le -ac 1 -ar 16000"},
		},
		{
			name: "mux",
			do:   func(a *Adapter) error { return a.MuxAudio(ctx, "v.mp4", "a.wav", 20*time.Second, "o.mp4") },
			want: []string{"-map 0:v:0 -map 1:a:0", "afade=t=out:st=19.000:d=1.000", "-c:v copy"},
		},
		{
			name: "replace audio",
			do:   func(a *Adapter) error { return a.ReplaceAudio(ctx, "v.mp4", "dub.wav", 4*time.Second, "o.mp4") },
			want: []string{"afade=t=out:st=3.000:d=1.000", "-c:v copy -c:a aac -b:a 128k -map 0:v:0 -map 1:a:0 -shortest o.mp4"},
		},
		{
			name: "subtitles",
			do:   func(a *Adapter) error { return a.BurnSubtitles(ctx, "v.mp4", "C:/subs.ass", "o.mp4") },
			want: []string{"-vf ass=C\\:/subs.ass", "-c:a copy"},
		},
		{
			name: "watermark",
			do:   func(a *Adapter) error { return a.Overlay(ctx, "v.mp4", "wm.png", "o.mp4") },
			want: []string{"[1:v][0:v]scale2ref=w=main_w/10:h=-1[wm][base];[base][wm]overlay=40:40"},
		},
		{
			name: "music clamps volume",
			do:   func(a *Adapter) error { return a.MixMusic(ctx, "v.mp4", "m.mp3", 3, "o.mp4") },
			want: []string{"[1:a]volume=1[bg];[0:a][bg]amix=inputs=2:duration=shortest:dropout_transition=2[mixed]", "-map 0:v -map [mixed] -c:v copy", "-shortest"},
		},
		{
			name: "music volume",
			do:   func(a *Adapter) error { return a.MixMusic(ctx, "v.mp4", "m.mp3", 0.1, "o.mp4") },
			want: []string{"volume=0.1[bg]"},
		},
		{
			name: "encode frames",
			do:   func(a *Adapter) error { return a.EncodeFrames(ctx, "frames", 25, "v.mp4") },
			want: []string{"-framerate 25 -i frames/%06d.jpg", "-pix_fmt yuv420p -an v.mp4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			a := New("", "", WithRunner(rec.run))
			if err := tt.do(a); err != nil {
				t.Fatal(err)
			}
			if rec.calls[0].name != "ffmpeg" {
				t.Fatalf("unexpected binary %q", rec.calls[0].name)
			}
			got := rec.joined()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Fatalf("expected %q in %q", w, got)
				}
			}
		})
	}
}

func TestWithEncoder(t *testing.T) {
	rec := &recorder{}
	a := New("ff", "fp", WithRunner(rec.run), WithEncoder("slow", 18))
	if err := a.BurnSubtitles(context.Background(), "in.mp4", "s.ass", "out.mp4"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.joined(), "-preset slow -crf 18") {
		t.Fatalf("encoder override ignored: %s", rec.joined())
	}
}

func TestErrorIncludesOutput(t *testing.T) {
	rec := &recorder{out: []byte("No such file"), err: errors.New("exit status 1")}
	a := New("", "", WithRunner(rec.run))
	err := a.ExtractAudio(context.Background(), "missing.mp4", "a.wav")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "ffmpeg extract audio") || !strings.Contains(err.Error(), "No such file") {
		t.Fatalf("unexpected error %q", err)
	}
}

func TestProbe(t *testing.T) {
	rec := &recorder{out: []byte("12.5\n")}
	a := New("", "", WithRunner(rec.run))
	d, err := a.ProbeDuration(context.Background(), "x.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12500*time.Millisecond {
		t.Fatalf("duration = %v", d)
	}

	rec.out = []byte("1920x1080\n")
	w, h, err := a.ProbeResolution(context.Background(), "x.mp4")
	if err != nil || w != 1920 || h != 1080 {
		t.Fatalf("resolution = %dx%d err=%v", w, h, err)
	}

	rec.out = []byte("garbage")
	if _, _, err := a.ProbeResolution(context.Background(), "x.mp4"); err == nil {
		t.Fatal("expected parse error")
	}
}
