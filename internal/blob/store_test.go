package blob

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoverKey_PrefixAndUniqueness(t *testing.T) {
	k1 := CoverKey("pic.png")
	k2 := CoverKey("pic.png")

	assert.True(t, strings.HasPrefix(k1, "covers/"))
	assert.True(t, strings.HasSuffix(k1, "_pic.png"))
	assert.NotEqual(t, k1, k2, "same filename must yield distinct keys")
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"pic.png":              "pic.png",
		"../../etc/passwd":     "passwd",
		"C:\\photos\\me.jpg":   "me.jpg",
		"my photo (1).png":     "my_photo__1_.png",
		"":                     "cover",
		"résumé.gif":           "r_sum_.gif",
		"snake_case-name.jpeg": "snake_case-name.jpeg",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}
}

func TestS3Store_URL(t *testing.T) {
	s := &S3Store{publicBaseURL: "http://localhost:9000/todo-covers"}
	assert.Equal(t,
		"http://localhost:9000/todo-covers/covers/abc_pic.png",
		s.URL("covers/abc_pic.png"))
}
