package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidate_Defaults verifies empty match and priority normalize to exact
// and normal
func TestValidate_Defaults(t *testing.T) {
	e := Entry{Type: TypeKeyword, Value: "  gossip  "}

	require.NoError(t, e.Validate())

	assert.Equal(t, "gossip", e.Value)
	assert.Equal(t, MatchExact, e.Match)
	assert.Equal(t, PriorityNormal, e.Priority)
}

// TestValidate_Rejections verifies each malformed field wraps the right
// sentinel
func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  error
	}{
		{"unknown type", Entry{Type: "folder", Value: "x"}, ErrInvalidEntry},
		{"empty value", Entry{Type: TypeKeyword, Value: "   "}, ErrInvalidEntry},
		{"unknown match", Entry{Type: TypeKeyword, Value: "x", Match: "fuzzy"}, ErrInvalidEntry},
		{"unknown priority", Entry{Type: TypeKeyword, Value: "x", Priority: "urgent"}, ErrInvalidEntry},
		{"app without exe", Entry{Type: TypeApp, Value: "steam", Match: MatchExact}, ErrInvalidEntry},
		{"website without dot", Entry{Type: TypeWebsite, Value: "localhost", Match: MatchContains}, ErrInvalidEntry},
		{"bad regex", Entry{Type: TypeKeyword, Value: "[", Match: MatchRegex}, ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestValidate_AppExactNeedsExe verifies the exe requirement applies only to
// exact app matches
func TestValidate_AppExactNeedsExe(t *testing.T) {
	exact := Entry{Type: TypeApp, Value: "steam.exe", Match: MatchExact}
	assert.NoError(t, exact.Validate())

	contains := Entry{Type: TypeApp, Value: "steam", Match: MatchContains}
	assert.NoError(t, contains.Validate())
}

// TestValidate_WebsiteRegexSkipsDomainCheck verifies regex websites need not
// look like a domain
func TestValidate_WebsiteRegexSkipsDomainCheck(t *testing.T) {
	e := Entry{Type: TypeWebsite, Value: `(insta|face)gram`, Match: MatchRegex}
	assert.NoError(t, e.Validate())
}

// TestMatches_Modes verifies exact, contains and regex matching semantics
func TestMatches_Modes(t *testing.T) {
	exact := Entry{Type: TypeApp, Value: "steam.exe", Match: MatchExact, Enabled: true}
	assert.True(t, exact.Matches("Steam.EXE"))
	assert.False(t, exact.Matches("steam.exe.bak"))

	contains := Entry{Type: TypeKeyword, Value: "Shorts", Match: MatchContains, Enabled: true}
	assert.True(t, contains.Matches("watching shorts again"))
	assert.False(t, contains.Matches("short films"))

	regex := Entry{Type: TypeKeyword, Value: `you ?tube`, Match: MatchRegex, Enabled: true}
	assert.True(t, regex.Matches("YouTube Music"))
	assert.True(t, regex.Matches("you tube clone"))
	assert.False(t, regex.Matches("utube"))
}

// TestMatches_DisabledNeverMatches verifies disabled entries match nothing
func TestMatches_DisabledNeverMatches(t *testing.T) {
	e := Entry{Type: TypeKeyword, Value: "gossip", Match: MatchContains, Enabled: false}
	assert.False(t, e.Matches("celebrity gossip"))
}

// TestMatches_BadRegexMatchesNothing verifies an uncompilable pattern is
// inert rather than panicking
func TestMatches_BadRegexMatchesNothing(t *testing.T) {
	e := Entry{Type: TypeKeyword, Value: "[", Match: MatchRegex, Enabled: true}
	assert.NotPanics(t, func() {
		assert.False(t, e.Matches("anything ["))
	})
}
