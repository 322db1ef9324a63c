package cloudinary

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)

	svc, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/prompts/"}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestBuildPublicID(t *testing.T) {
	now := time.Unix(1700000000, 0)

	cases := map[string]string{
		"Meeting Notes.MD":          "meeting-notes-1700000000.md",
		"../../etc/passwd.txt":      "passwd-1700000000.txt",
		"???.txt":                   "prompt-1700000000.txt",
		"Q3 -- launch__plan!!.json": "q3-launch-plan-1700000000.json",
		"notes":                     "notes-1700000000",
	}
	for input, want := range cases {
		require.Equal(t, want, buildPublicID(input, now), input)
	}

	long := buildPublicID(strings.Repeat("a", 100)+".txt", now)
	require.Equal(t, strings.Repeat("a", maxPublicIDBase)+"-1700000000.txt", long)
}
