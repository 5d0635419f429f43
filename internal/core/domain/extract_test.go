package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBody(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "strips tags",
			raw:  "<html><body><p>hello world</p></body></html>",
			want: "hello world",
		},
		{
			name: "collapses whitespace",
			raw:  "hello\n\t   world  ",
			want: "hello world",
		},
		{
			name: "tags become separators",
			raw:  "admin@example.com<br>10.0.0.5",
			want: "admin@example.com 10.0.0.5",
		},
		{
			name: "empty body",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBody(tt.raw))
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	text := `Contact us at admin@example.com from 10.0.0.5 or visit http://evil.example/payload.bin`
	candidates := reg.Run(text)

	assert.Equal(t, []string{"http://evil.example/payload.bin"}, candidates[CandidateURLs])
	assert.Equal(t, []string{"10.0.0.5"}, candidates[CandidateIPs])
	assert.Equal(t, []string{"admin@example.com"}, candidates[CandidateEmails])
}

func TestDefaultRegistryIPSyntacticOnly(t *testing.T) {
	// Octet range is intentionally not validated.
	candidates := DefaultRegistry().Run("seen at 999.999.999.999 yesterday")
	assert.Equal(t, []string{"999.999.999.999"}, candidates[CandidateIPs])
}

func TestDefaultRegistryEmptyLists(t *testing.T) {
	candidates := DefaultRegistry().Run("nothing interesting here")
	for _, key := range []string{CandidateURLs, CandidateIPs, CandidateEmails} {
		require.NotNil(t, candidates[key])
		assert.Empty(t, candidates[key])
	}
}

func TestRegistryIdempotent(t *testing.T) {
	reg := DefaultRegistry()
	text := NormalizeBody("<p>ping admin@example.com, see https://a.example/x and 192.168.1.1</p>")

	first := reg.Run(text)
	second := reg.Run(text)
	assert.Equal(t, first, second)
}

func TestNewRegexpExtractor(t *testing.T) {
	e, err := NewRegexpExtractor("hashes", `\b[a-f0-9]{32}\b`)
	require.NoError(t, err)
	assert.Equal(t, "hashes", e.Name())
	assert.Equal(t,
		[]string{"d41d8cd98f00b204e9800998ecf8427e"},
		e.Extract("md5 d41d8cd98f00b204e9800998ecf8427e found"))

	_, err = NewRegexpExtractor("broken", `[`)
	assert.Error(t, err)
}

func TestRegistryRegister(t *testing.T) {
	reg := NewExtractorRegistry()
	e, err := NewRegexpExtractor("numbers", `\d+`)
	require.NoError(t, err)
	reg.Register(e)

	candidates := reg.Run("a1 b22")
	assert.Equal(t, []string{"1", "22"}, candidates["numbers"])
}
