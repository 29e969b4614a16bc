package wiki

import (
	"errors"
	"strings"
	"testing"
)

func TestNewTitle(t *testing.T) {
	testCases := []struct {
		name       string
		text       string
		ns         Namespace
		wantText   string
		wantPrefix string
		wantErr    bool
	}{
		{
			name:       "plain user page",
			text:       "Bob Jones",
			ns:         NamespaceUser,
			wantText:   "Bob Jones",
			wantPrefix: "User:Bob Jones",
		},
		{
			name:       "underscores and extra spaces",
			text:       "  Bob__Jones ",
			ns:         NamespaceUserTalk,
			wantText:   "Bob Jones",
			wantPrefix: "User talk:Bob Jones",
		},
		{
			name:       "case is preserved",
			text:       "carol",
			ns:         NamespaceUser,
			wantText:   "carol",
			wantPrefix: "User:carol",
		},
		{
			name:       "main namespace has no prefix",
			text:       "Main Page",
			ns:         NamespaceMain,
			wantText:   "Main Page",
			wantPrefix: "Main Page",
		},
		{name: "empty", text: "", ns: NamespaceUser, wantErr: true},
		{name: "only underscores", text: "___", ns: NamespaceUser, wantErr: true},
		{name: "illegal bracket", text: "Bob [admin]", ns: NamespaceUser, wantErr: true},
		{name: "illegal pipe", text: "a|b", ns: NamespaceUser, wantErr: true},
		{name: "control character", text: "Bob\nJones", ns: NamespaceUser, wantErr: true},
		{name: "leading colon", text: ":Bob", ns: NamespaceUser, wantErr: true},
		{name: "too long", text: strings.Repeat("x", 256), ns: NamespaceUser, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			title, err := NewTitle(tc.text, tc.ns)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NewTitle(%q) expected error, got %v", tc.text, title)
				}
				if !errors.Is(err, ErrInvalidTitle) {
					t.Errorf("error %v does not wrap ErrInvalidTitle", err)
				}
				var titleErr *InvalidTitleError
				if !errors.As(err, &titleErr) {
					t.Errorf("error %v is not *InvalidTitleError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTitle(%q) error: %v", tc.text, err)
			}
			if title.Text() != tc.wantText {
				t.Errorf("Text() = %q, want %q", title.Text(), tc.wantText)
			}
			if title.PrefixedText() != tc.wantPrefix {
				t.Errorf("PrefixedText() = %q, want %q", title.PrefixedText(), tc.wantPrefix)
			}
			if title.Namespace() != tc.ns {
				t.Errorf("Namespace() = %d, want %d", title.Namespace(), tc.ns)
			}
		})
	}
}

func TestTitle_Keys(t *testing.T) {
	title, err := NewTitle("Bob Jones/Sandbox", NamespaceUserTalk)
	if err != nil {
		t.Fatalf("NewTitle() error: %v", err)
	}

	if got := title.DBKey(); got != "Bob_Jones/Sandbox" {
		t.Errorf("DBKey() = %q", got)
	}
	if got := title.PrefixedDBKey(); got != "User_talk:Bob_Jones/Sandbox" {
		t.Errorf("PrefixedDBKey() = %q", got)
	}
	if got := title.RootText(); got != "Bob Jones" {
		t.Errorf("RootText() = %q", got)
	}
}

func TestValidUsername(t *testing.T) {
	testCases := []struct {
		name string
		want bool
	}{
		{"alice", true},
		{"Bob Jones", true},
		{"", false},
		{"alice@example.com", false},
		{"a:b", false},
		{"a=b", false},
		{"192.168.0.1", false},
		{"2001:db8::1", false},
		{"Bob_Jones", false},
		{" alice", false},
		{"x{y}", false},
		{"bob/Sandbox", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidUsername(tc.name); got != tc.want {
				t.Errorf("ValidUsername(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestViewer_IsAllowed(t *testing.T) {
	v := Viewer{Name: "admin", Rights: []string{"edit", RightBlock}}
	if !v.IsAllowed(RightBlock) {
		t.Error("IsAllowed(block) = false, want true")
	}
	if v.IsAllowed("delete") {
		t.Error("IsAllowed(delete) = true, want false")
	}
	if Anonymous().IsAllowed(RightBlock) {
		t.Error("anonymous viewer should hold no rights")
	}
}
