package common

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"leaf.jpg", "leaf.jpg"},
		{"my leaf photo.png", "my_leaf_photo.png"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\Users\me\leaf.png`, "C_Users_me_leaf.png"},
		{".hidden.png", "hidden.png"},
		{"leaf<>|?.png", "leaf.png"},
		{"तस्वीर.png", "png"},
		{"", "upload"},
		{"...", "upload"},
		{"/", "upload"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
