package asset

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestMatchesExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		m    Modality
		name string
		want bool
	}{
		{ModalityImage, "a.PNG", true},
		{ModalityImage, "dir/b.jpeg", true},
		{ModalityImage, "c.mp3", false},
		{ModalityAudio, "c.mp3", true},
		{ModalityAudio, "d.Flac", true},
		{ModalityAudio, "e", false},
	}
	for _, tt := range tests {
		if got := MatchesExtension(tt.m, tt.name); got != tt.want {
			t.Fatalf("MatchesExtension(%s, %q) = %v, want %v", tt.m, tt.name, got, tt.want)
		}
	}
}

func TestIsPlatformMetadata(t *testing.T) {
	t.Parallel()

	noise := []string{"__MACOSX/a/._b.png", "./__MACOSX/x.png", "photos/._c.jpg", ".DS_Store", "x/Thumbs.db"}
	for _, name := range noise {
		if !IsPlatformMetadata(name) {
			t.Fatalf("%q should be platform metadata", name)
		}
	}
	for _, name := range []string{"photos/c.jpg", "macosx.png", "_b.png"} {
		if IsPlatformMetadata(name) {
			t.Fatalf("%q should not be platform metadata", name)
		}
	}
}

func TestDetectMedia(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var pngBuf, jpegBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(&jpegBuf, img, nil); err != nil {
		t.Fatal(err)
	}
	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)

	tests := []struct {
		name     string
		m        Modality
		data     []byte
		wantType string
		wantOK   bool
	}{
		{"png", ModalityImage, pngBuf.Bytes(), "image/png", true},
		{"jpeg", ModalityImage, jpegBuf.Bytes(), "image/jpeg", true},
		{"text as image", ModalityImage, []byte("hello there"), "text/plain", false},
		{"wav", ModalityAudio, wav, "audio/wav", true},
		{"png as audio", ModalityAudio, pngBuf.Bytes(), "image/png", false},
	}
	for _, tt := range tests {
		gotType, gotOK := DetectMedia(tt.m, tt.data)
		if gotType != tt.wantType || gotOK != tt.wantOK {
			t.Fatalf("%s: DetectMedia = (%s, %v), want (%s, %v)", tt.name, gotType, gotOK, tt.wantType, tt.wantOK)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"photos/market.png":   "market.png",
		`C:\uploads\clip.wav`: "clip.wav",
		"../../etc/passwd":    "passwd",
		"na\x00me\x1f.jpg":    "name.jpg",
		"double..dots.png":    "doubledots.png",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
