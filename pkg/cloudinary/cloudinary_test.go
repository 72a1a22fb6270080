package cloudinary

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildPublicID(t *testing.T) {
	id := BuildPublicID("uploads/Question Diagram (1).PNG")
	require.True(t, strings.HasPrefix(id, "question-diagram--1-"), id)

	fallback := BuildPublicID("???.png")
	require.True(t, strings.HasPrefix(fallback, "media-"), fallback)
	require.NotEqual(t, fallback, BuildPublicID("???.png"))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}

func TestMediaLink(t *testing.T) {
	svc, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret"}, zerolog.Nop())
	require.NoError(t, err)

	require.Empty(t, svc.MediaLink("  "))

	link := svc.MediaLink("gema/exams/diagram-1")
	require.True(t, strings.HasPrefix(link, "https://res.cloudinary.com/demo/image/upload/"), link)
	require.True(t, strings.HasSuffix(link, "gema/exams/diagram-1"), link)
}
